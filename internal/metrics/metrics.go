package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const namespace = "dialogue"

var (
	// Labels: intent, action (the recorded last_action)
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Completed dialogue turns by intent and action taken",
	}, []string{"intent", "action"})

	// Labels: tool, status (success, failure, unknown)
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool gateway dispatches by tool and outcome",
	}, []string{"tool", "status"})

	// Labels: method (external_api, local_eval)
	calculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calculator",
		Name:      "evaluations_total",
		Help:      "Successful calculations by evaluation method",
	}, []string{"method"})

	turnDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "End-to-end latency of a dialogue turn including persistence",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)

const (
	ToolStatusSuccess = "success"
	ToolStatusFailure = "failure"
	ToolStatusUnknown = "unknown"
)

func RecordTurn(intent, action string, elapsed time.Duration) {
	turnsTotal.WithLabelValues(intent, action).Inc()
	turnDurationSeconds.Observe(elapsed.Seconds())
}

func RecordToolCall(tool, status string) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func RecordCalculation(method string) {
	calculationsTotal.WithLabelValues(method).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logx.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
