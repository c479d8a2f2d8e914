package sched

import (
	"context"
	"log"
	"time"

	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payment intents and
// fails them, releasing the intent so the client can re-quote. This covers
// abandoned checkouts and processes that crashed between intent and purchase.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	txs        repository.TransactionRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending intent must be to expire
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, txs repository.TransactionRepository, interval, staleAfter time.Duration) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &PaymentReconciler{uc: uc, txs: txs, interval: interval, staleAfter: staleAfter}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.txs.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		log.Printf("payment-reconciler: list pending error: %v", err)
		return
	}
	for _, t := range pending {
		if _, err := w.uc.Confirm(ctx, t.ID, false); err != nil {
			log.Printf("payment-reconciler: expire failed tx=%s err=%v", t.ID, err)
			continue
		}
		log.Printf("payment-reconciler: expired stale intent tx=%s", t.ID)
	}
}
