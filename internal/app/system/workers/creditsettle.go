// internal/app/system/workers/creditsettle.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// DefaultSettleBatch caps how many payments one sweep settles.
const DefaultSettleBatch = 100

// CreditSettle is a background worker that settles waiting credits once
// their hold period has passed. Each matured payment moves its amount from
// the user's waiting balance into the settled balances, then the payment
// document is marked settled.
type CreditSettle struct {
	users    *userstore.Store
	payments *paymentstore.Store
	log      *zap.Logger
	interval time.Duration
	holdFor  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCreditSettle creates a new settlement worker.
//
// Parameters:
//   - users: the user store holding the credit balances
//   - payments: the payment store scanned for matured waiting payments
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - holdFor: how long a payment waits before it settles (e.g., 72 hours)
func NewCreditSettle(users *userstore.Store, payments *paymentstore.Store, logger *zap.Logger, interval, holdFor time.Duration) *CreditSettle {
	return &CreditSettle{
		users:    users,
		payments: payments,
		log:      logger,
		interval: interval,
		holdFor:  holdFor,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background settlement loop.
func (w *CreditSettle) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("credit settlement worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("hold_for", w.holdFor))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *CreditSettle) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("credit settlement worker stopped")
}

func (w *CreditSettle) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep settles one batch of matured payments. Settling the user balance
// and marking the payment are two writes; the payment is only marked after
// the balance move succeeds, so a crash between the two re-runs the balance
// move. SettleCredit's waiting_credit guard keeps that retry from
// double-paying.
func (w *CreditSettle) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	cutoff := time.Now().Add(-w.holdFor)
	due, err := w.payments.ListWaitingOlderThan(ctx, cutoff, DefaultSettleBatch)
	if err != nil {
		w.log.Error("failed to list matured payments", zap.Error(err))
		return
	}

	var settled int
	for _, p := range due {
		err := w.users.SettleCredit(ctx, p.UserID, p.Amount)
		if errors.Is(err, userstore.ErrNotFound) || errors.Is(err, userstore.ErrBadInput) {
			// The user is gone or the waiting balance no longer covers
			// the payment. Mark it settled so the sweep does not spin on
			// it forever.
			w.log.Warn("skipping unsettleable payment",
				zap.String("payment_id", p.ID.Hex()),
				zap.String("user_id", p.UserID.Hex()),
				zap.Int64("amount", p.Amount),
				zap.Error(err))
		} else if err != nil {
			w.log.Error("failed to settle credit",
				zap.String("payment_id", p.ID.Hex()),
				zap.String("user_id", p.UserID.Hex()),
				zap.Error(err))
			continue
		}

		if err := w.payments.MarkSettled(ctx, p.ID); err != nil {
			w.log.Error("failed to mark payment settled",
				zap.String("payment_id", p.ID.Hex()),
				zap.Error(err))
			continue
		}
		settled++
	}

	if settled > 0 {
		w.log.Info("settled waiting credits", zap.Int("count", settled))
	}
}
