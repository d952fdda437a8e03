// Package app composes the ledger service with its retry policy, metrics and
// event bus subscribers.
package app

import (
	"context"
	"fmt"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/eventbus"
)

// setupEventBus registers the TransactionRecorded subscriber. It is the
// hand-off point for downstream consumers such as notifications.
func (a *App) setupEventBus() {
	if a.Deps.EventBus == nil {
		return
	}
	a.Deps.EventBus.Register(mileage.EventTypeTransactionRecorded, a.onTransactionRecorded)
}

func (a *App) onTransactionRecorded(_ context.Context, e eventbus.Event) error {
	evt, ok := e.(*mileage.TransactionRecorded)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", e, mileage.EventTypeTransactionRecorded)
	}
	a.Metrics.ObserveTransaction(evt.Kind, evt.Points)
	a.Deps.Logger.Info("transaction recorded",
		"transaction_id", evt.TransactionID,
		"user_id", evt.UserID,
		"kind", evt.Kind,
		"points", evt.Points,
		"balance_after", evt.BalanceAfter,
	)
	return nil
}
