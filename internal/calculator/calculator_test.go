package calculator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

type stubProvider struct {
	reply string
	err   error
	delay time.Duration
	calls []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Evaluate(ctx context.Context, expr string) (string, error) {
	p.calls = append(p.calls, expr)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}

func TestCalculateLocal(t *testing.T) {
	res, err := New().Calculate(context.Background(), "2 + 3")
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Value)
	assert.Equal(t, MethodLocal, res.Method)
	assert.Equal(t, "2 + 3", res.Expression)
}

func TestCalculateUsesProviderReply(t *testing.T) {
	p := &stubProvider{reply: " 5 "}
	res, err := New(WithProvider(p)).Calculate(context.Background(), "2 x 3 - 1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Value)
	assert.Equal(t, MethodExternal, res.Method)
	assert.Equal(t, []string{"2 * 3 - 1"}, p.calls, "provider only sees normalized text")
}

func TestCalculateRevalidatesNonNumericReply(t *testing.T) {
	res, err := New(WithProvider(&stubProvider{reply: "(2 + 3)"})).Calculate(context.Background(), "2 + 3")
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Value)
	assert.Equal(t, MethodExternal, res.Method)
}

func TestCalculateFallsBack(t *testing.T) {
	cases := map[string]*stubProvider{
		"transport error": {err: errors.New("dial tcp: connection refused")},
		"prose reply":     {reply: "The answer is five"},
		"code reply":      {reply: "__import__('os')"},
		"infinite reply":  {reply: "Infinity"},
		"empty reply":     {reply: ""},
		"timeout":         {reply: "999", delay: time.Second},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(WithProvider(p), WithTimeout(20*time.Millisecond))
			res, err := c.Calculate(context.Background(), "2 + 3")
			require.NoError(t, err)
			assert.Equal(t, 5.0, res.Value)
			assert.Equal(t, MethodLocal, res.Method)
		})
	}
}

func TestCalculateRejectsBeforeProvider(t *testing.T) {
	p := &stubProvider{reply: "0"}
	_, err := New(WithProvider(p)).Calculate(context.Background(), "import os")
	require.Error(t, err)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
	assert.Empty(t, p.calls)
}

func TestCalculateDivisionByZeroAfterFallback(t *testing.T) {
	p := &stubProvider{err: errors.New("down")}
	_, err := New(WithProvider(p)).Calculate(context.Background(), "5 / 0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMathJSProvider(t *testing.T) {
	gotExpr := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotExpr <- r.URL.Query().Get("expr")
		_, _ = w.Write([]byte("8\n"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	p := NewMathJSProvider(srv.URL+"/v4/", client)
	out, err := p.Evaluate(context.Background(), "2 ** 3")
	require.NoError(t, err)
	assert.Equal(t, "8", out)
	assert.Equal(t, "2 ^ 3", <-gotExpr)
}

func TestMathJSProviderErrors(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("expr") == "1 / 1" {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Error: Undefined symbol"))
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	p := NewMathJSProvider(srv.URL, client)

	_, err := p.Evaluate(context.Background(), "2 + 3")
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstreamUnavailable, errx.KindOf(err))

	c := New(WithProvider(p), WithTimeout(50*time.Millisecond))
	res, err := c.Calculate(context.Background(), "1 / 1")
	require.NoError(t, err)
	assert.Equal(t, MethodLocal, res.Method)
	assert.Equal(t, 1.0, res.Value)
}

type fakeChatModel struct {
	reply *schema.Message
	err   error
	seen  []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = in
	return m.reply, m.err
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestGeminiProvider(t *testing.T) {
	reply := schema.AssistantMessage(" 42 ", nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 30, CompletionTokens: 2, TotalTokens: 32}}
	chat := &fakeChatModel{reply: reply}

	p := NewGeminiProvider(chat, "gemini-2.5-flash-lite")
	out, err := p.Evaluate(context.Background(), "6 * 7")
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	require.Len(t, chat.seen, 2)
	assert.Equal(t, schema.System, chat.seen[0].Role)
	assert.Equal(t, "6 * 7", chat.seen[1].Content)

	chat.err = errors.New("quota exceeded")
	_, err = p.Evaluate(context.Background(), "6 * 7")
	assert.Equal(t, errx.KindUpstreamUnavailable, errx.KindOf(err))
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 2.50, out, 1e-9)
	assert.InDelta(t, 2.80, total, 1e-9)
	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))
}
