package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/anshulj/papershelf/internal/config"
	"github.com/anshulj/papershelf/internal/queue"
)

// The worker binary only schedules sweeps. The sweep itself runs inside the
// API process, which owns the index writer session.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		&asynq.SchedulerOpts{
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					slog.Error("failed to enqueue scheduled task", "error", err)
					return
				}
				slog.Info("scheduled task enqueued", "type", info.Type, "id", info.ID)
			},
		},
	)

	spec := fmt.Sprintf("@every %s", cfg.Reconcile.Interval)
	entryID, err := scheduler.Register(spec, asynq.NewTask(queue.TypeReconcileSweep, nil),
		asynq.Unique(cfg.Reconcile.Interval))
	if err != nil {
		slog.Error("failed to register reconcile schedule", "error", err)
		os.Exit(1)
	}
	slog.Info("reconcile sweep scheduled", "entry", entryID, "interval", cfg.Reconcile.Interval.String())

	if err := scheduler.Run(); err != nil {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}
