// Package worker runs background jobs alongside the HTTP server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// Reconciler periodically polls the vendor for payments stuck in processing.
// Webhooks are the fast path; this is the safety net for deliveries that
// never arrive.
type Reconciler struct {
	registry  ports.ProviderRegistry
	payments  ports.PaymentStore
	interval  time.Duration
	stuckFor  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	registry ports.ProviderRegistry,
	payments ports.PaymentStore,
	interval time.Duration,
	stuckFor time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		registry:  registry,
		payments:  payments,
		interval:  interval,
		stuckFor:  stuckFor,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *Reconciler) Start(ctx context.Context) {
	w.logger.Info("reconciler started", "interval", w.interval, "stuck_for", w.stuckFor)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconciler stopping")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("reconciliation pass failed", "error", err)
			}
		}
	}
}

// RunOnce reconciles one batch of stuck payments.
func (w *Reconciler) RunOnce(ctx context.Context) error {
	stuck, err := w.payments.FindProcessing(ctx, w.stuckFor, w.batchSize)
	if err != nil {
		return err
	}

	if len(stuck) == 0 {
		return nil
	}

	var resolved int
	for _, payment := range stuck {
		if err := w.reconcile(ctx, payment); err != nil {
			w.logger.Error("failed to reconcile payment",
				"payment_id", payment.ID,
				"provider", payment.Provider,
				"error", err)
			continue
		}
		if payment.Status != domain.PaymentProcessing {
			resolved++
		}
	}

	w.logger.Info("reconciliation pass completed",
		"checked", len(stuck),
		"resolved", resolved)

	return nil
}

func (w *Reconciler) reconcile(ctx context.Context, payment *domain.Payment) error {
	if payment.TransactionID == nil {
		// The process died between the pre-write and the vendor call; there
		// is no vendor reference to poll, so the attempt cannot have settled.
		if err := payment.Fail("no provider transaction recorded"); err != nil {
			return err
		}
		return w.payments.Update(ctx, payment)
	}

	adapter, err := w.registry.Get(payment.Provider)
	if err != nil {
		return err
	}

	result, err := adapter.GetPaymentStatus(ctx, *payment.TransactionID)
	if err != nil {
		return err
	}

	if result.Status == payment.Status || result.Status == domain.PaymentPending {
		// The vendor still reports an unsettled charge; check again next pass.
		return nil
	}
	if err := payment.ApplyStatus(result.Status); err != nil {
		return err
	}
	return w.payments.Update(ctx, payment)
}
