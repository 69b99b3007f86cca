package workers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/anshulj/papershelf/internal/reconcile"
)

type ReconcileWorker struct {
	sweeper *reconcile.Sweeper
}

func NewReconcileWorker(sweeper *reconcile.Sweeper) *ReconcileWorker {
	return &ReconcileWorker{sweeper: sweeper}
}

func (w *ReconcileWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	report, err := w.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	slog.Info("reconcile task finished",
		"reindexed", report.Reindexed, "removed", report.Removed, "generation", report.Generation)
	return nil
}
