package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors for engine operations
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otl",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Challenge operations by name and outcome (ok, rejected, persistence, critical).",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.ops)
	}
	return m
}

type invocationKey struct{}

// WithInvocation tags ctx with the ID of the command invocation driving it
func WithInvocation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

// Invocation returns the invocation ID on ctx, if any
func Invocation(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}

// track logs and counts the outcome of an operation. Use as: defer a.track(ctx, "op", id, &err)
func (a *API) track(ctx context.Context, op string, id int, errp *error) {
	outcome := "ok"
	err := *errp
	attrs := []any{slog.String("operation", op), slog.Int("challenge_id", id)}
	if inv := Invocation(ctx); inv != "" {
		attrs = append(attrs, slog.String("invocation_id", inv))
	}

	switch {
	case err == nil:
		a.Log.Debug("challenge operation", attrs...)
	case IsCritical(err):
		outcome = "critical"
		a.Log.Error("challenge operation needs manual intervention", append(attrs, slog.Any("error", err))...)
	case IsPersistence(err):
		outcome = "persistence"
		a.Log.Error("challenge operation failed", append(attrs, slog.Any("error", err))...)
	default:
		outcome = "rejected"
		a.Log.Info("challenge operation rejected", append(attrs, slog.Any("error", err))...)
	}
	if a.metrics != nil {
		a.metrics.ops.WithLabelValues(op, outcome).Inc()
	}
}
