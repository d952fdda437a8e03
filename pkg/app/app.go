package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/metrics"
	"github.com/amirasaad/mileage/pkg/retry"
	"github.com/amirasaad/mileage/pkg/service/ledger"
)

// App is the composition root shared by the HTTP server and the CLI.
type App struct {
	Deps    *config.Deps
	Config  *config.App
	Ledger  *ledger.Service
	Metrics *metrics.Metrics
	Retry   retry.Policy
}

// New wires the ledger service, metrics and bus subscribers.
func New(deps *config.Deps, cfg *config.App, opts ...ledger.Option) *App {
	app := &App{
		Deps:    deps,
		Config:  cfg,
		Metrics: metrics.New(),
	}

	ledgerOpts := []ledger.Option{}
	if cfg.Ledger != nil {
		ledgerOpts = append(ledgerOpts,
			ledger.WithPessimisticLocking(cfg.Ledger.Pessimistic()),
			ledger.WithPageSizes(cfg.Ledger.DefaultPageSize, cfg.Ledger.MaxPageSize),
		)
		app.Retry = retry.FromConfig(cfg.Ledger)
	}
	app.Ledger = ledger.New(deps.Uow, deps.Logger, append(ledgerOpts, opts...)...)

	app.setupEventBus()
	return app
}

// WriteRequest describes one ledger write issued by an outer surface.
type WriteRequest struct {
	Kind        mileage.Kind
	UserID      int64
	Points      int64
	Source      mileage.Source
	Description string
}

// Write applies req, retrying lost concurrency races, and publishes the
// committed transaction. A publish failure is logged and does not fail the
// write, which has already committed.
func (a *App) Write(ctx context.Context, req WriteRequest) (*ledger.Result, error) {
	op := string(req.Kind)
	log := a.Deps.Logger.With("operation", op, "user_id", req.UserID)

	policy := a.Retry
	policy.OnRetry = func(attempt int, err error) {
		a.Metrics.ObserveConflict(op)
		log.Warn("retrying ledger write", "attempt", attempt, "error", err)
	}

	start := time.Now()
	res, err := retry.OnConflict(ctx, policy, func(ctx context.Context) (*ledger.Result, error) {
		return a.apply(ctx, req)
	})
	a.Metrics.ObserveOperation(op, err, time.Since(start))
	if err != nil {
		if errors.Is(err, mileage.ErrConcurrentModification) {
			a.Metrics.ObserveConflict(op)
		}
		return nil, err
	}

	if a.Deps.EventBus != nil {
		if perr := a.Deps.EventBus.Emit(ctx, mileage.NewTransactionRecorded(res.Transaction)); perr != nil {
			log.Error("failed to publish transaction", "transaction_id", res.Transaction.ID, "error", perr)
		}
	}
	return res, nil
}

func (a *App) apply(ctx context.Context, req WriteRequest) (*ledger.Result, error) {
	switch req.Kind {
	case mileage.KindEarn:
		return a.Ledger.Earn(ctx, req.UserID, req.Points, req.Source, req.Description)
	case mileage.KindUse:
		return a.Ledger.Use(ctx, req.UserID, req.Points, req.Source, req.Description)
	case mileage.KindExpire:
		return a.Ledger.Expire(ctx, req.UserID, req.Points, req.Description)
	case mileage.KindAdjust:
		return a.Ledger.Adjust(ctx, req.UserID, req.Points, req.Description)
	}
	return nil, mileage.ErrInvalidKind
}

// Close releases the event bus when it holds resources.
func (a *App) Close() error {
	if c, ok := a.Deps.EventBus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

