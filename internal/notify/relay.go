// internal/notify/relay.go
package notify

import (
	"context"
	"time"

	"credit-lifecycle/internal/common/config"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/common/metrics"
)

// Relay drains the notification outbox and hands events to the transport.
// At-least-once: a transport failure leaves the row pending with backoff.
type Relay struct {
	outbox    *Outbox
	transport Transport
	cfg       config.OutboxConfig
	logger    logger.Logger
}

func NewRelay(outbox *Outbox, transport Transport, cfg config.OutboxConfig, log logger.Logger) *Relay {
	return &Relay{
		outbox:    outbox,
		transport: transport,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify-relay"}),
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	interval := time.Duration(r.cfg.PollInterval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopping", nil)
			return
		case <-ticker.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) {
	rows, err := r.outbox.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("outbox fetch failed", map[string]interface{}{"error": err})
		return
	}

	for _, row := range rows {
		if err := r.transport.Send(ctx, &row.Event); err != nil {
			r.logger.Warn("notification delivery failed, rescheduling", map[string]interface{}{
				"outboxId":  row.ID,
				"eventType": row.Event.Type,
				"attempts":  row.Attempts,
				"error":     err,
			})
			metrics.OutboxDispatched.WithLabelValues(string(row.Event.Type), "retry").Inc()
			if err := r.outbox.Reschedule(ctx, row, r.cfg.MaxAttempts); err != nil {
				r.logger.Error("outbox reschedule failed", map[string]interface{}{
					"outboxId": row.ID,
					"error":    err,
				})
			}
			continue
		}

		metrics.OutboxDispatched.WithLabelValues(string(row.Event.Type), "delivered").Inc()
		if err := r.outbox.MarkDelivered(ctx, row.ID); err != nil {
			r.logger.Error("outbox mark delivered failed", map[string]interface{}{
				"outboxId": row.ID,
				"error":    err,
			})
		}
	}

	if n, err := r.outbox.PendingCount(ctx); err == nil {
		metrics.OutboxPending.Set(float64(n))
	}
}
