package calculator

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/dialogue/internal/metrics"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const (
	MethodExternal = "external_api"
	MethodLocal    = "local_eval"
)

const defaultTimeout = 5 * time.Second

// Provider is an optional external calculation service. It is best effort:
// any error or unusable reply makes the calculator fall back to local evaluation.
type Provider interface {
	Name() string
	Evaluate(ctx context.Context, expr string) (string, error)
}

// Result is a successful calculation.
type Result struct {
	Expression string
	Value      float64
	Method     string
}

// Calculator evaluates arithmetic expressions, preferring an external
// provider when one is configured.
type Calculator struct {
	provider Provider
	timeout  time.Duration
}

type Option func(*Calculator)

func WithProvider(p Provider) Option {
	return func(c *Calculator) { c.provider = p }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Calculator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(opts ...Option) *Calculator {
	c := &Calculator{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate validates expr before anything else sees it. The provider only
// ever receives the normalized, validated text.
func (c *Calculator) Calculate(ctx context.Context, expr string) (*Result, error) {
	clean, err := Validate(expr)
	if err != nil {
		return nil, err
	}

	if c.provider != nil {
		if v, ok := c.tryProvider(ctx, clean); ok {
			metrics.RecordCalculation(MethodExternal)
			return &Result{Expression: expr, Value: v, Method: MethodExternal}, nil
		}
	}

	v, err := Evaluate(clean)
	if err != nil {
		return nil, err
	}
	metrics.RecordCalculation(MethodLocal)
	return &Result{Expression: expr, Value: v, Method: MethodLocal}, nil
}

type providerReply struct {
	text string
	err  error
}

// tryProvider calls the provider under a deadline. On expiry the call is
// abandoned; the goroutine drains into a buffered channel.
func (c *Calculator) tryProvider(ctx context.Context, expr string) (float64, bool) {
	log := logx.Component("calculator").With().Str("provider", c.provider.Name()).Logger()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan providerReply, 1)
	go func() {
		text, err := c.provider.Evaluate(callCtx, expr)
		done <- providerReply{text: text, err: err}
	}()

	var reply providerReply
	select {
	case reply = <-done:
	case <-callCtx.Done():
		log.Warn().Err(callCtx.Err()).Msg("calculation provider timed out, using local evaluation")
		return 0, false
	}
	if reply.err != nil {
		log.Warn().Err(reply.err).Msg("calculation provider failed, using local evaluation")
		return 0, false
	}

	v, ok := acceptReply(reply.text)
	if !ok {
		log.Warn().Str("reply", truncate(reply.text, 64)).Msg("calculation provider returned an unusable reply")
	}
	return v, ok
}

// acceptReply accepts a plain finite number, or text that itself passes the
// local evaluator.
func acceptReply(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	v, err := Evaluate(text)
	if err != nil {
		return 0, false
	}
	return v, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
