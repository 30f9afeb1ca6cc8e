// Package jobs holds the concrete scheduled jobs.
package jobs

import (
	"context"

	"github.com/wonhee/bracket/internal/engine"
	"github.com/wonhee/bracket/pkg/logger"
)

// ReconcileJob periodically reloads the order collection from the server
// of record so fills and cancellations made outside this session show up
// without a manual refresh. While drags are staged the reload is skipped:
// reconciliation must not silently discard uncommitted edits.
type ReconcileJob struct {
	engine   *engine.Engine
	symbol   string
	schedule string
	logger   *logger.Logger
}

// NewReconcileJob creates a reconciliation job. An empty symbol reloads
// every order.
func NewReconcileJob(eng *engine.Engine, symbol, schedule string, log *logger.Logger) *ReconcileJob {
	return &ReconcileJob{
		engine:   eng,
		symbol:   symbol,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ReconcileJob) Name() string {
	return "order_reconcile"
}

// Schedule returns the cron schedule expression
func (j *ReconcileJob) Schedule() string {
	return j.schedule
}

// Run reloads orders from the server of record
func (j *ReconcileJob) Run(ctx context.Context) error {
	if staged := j.engine.PendingChanges(); len(staged) > 0 {
		j.logger.WithField("staged", len(staged)).Debug("Skipping reconcile, drags are staged")
		return nil
	}

	orders, err := j.engine.LoadOrders(ctx, j.symbol)
	if err != nil {
		return err
	}

	j.logger.WithField("count", len(orders)).Debug("Reconciled orders with server")
	return nil
}
