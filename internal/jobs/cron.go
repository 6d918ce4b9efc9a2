package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const recomputeTimeout = 30 * time.Minute

// Recomputer rebuilds every campaign's called counter.
type Recomputer interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// CronManager runs the scheduled maintenance jobs.
type CronManager struct {
	cron     *cron.Cron
	progress Recomputer
	log      *slog.Logger
}

func NewCronManager(progress Recomputer, loc *time.Location, log *slog.Logger) *CronManager {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronManager{
		cron:     cron.New(cron.WithLocation(loc)),
		progress: progress,
		log:      log.With("component", "jobs"),
	}
}

// SetupJobs registers the campaign progress recount on spec, a standard
// five-field cron expression.
func (cm *CronManager) SetupJobs(spec string) error {
	_, err := cm.cron.AddFunc(spec, cm.RecomputeProgress)
	if err != nil {
		return err
	}
	cm.log.Info("cron job registered", "job", "recompute_progress", "spec", spec)
	return nil
}

// RecomputeProgress is the job body. It is exported so an operator path can
// trigger it outside the schedule.
func (cm *CronManager) RecomputeProgress() {
	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	start := time.Now()
	n, err := cm.progress.RecomputeAll(ctx)
	if err != nil {
		cm.log.Error("campaign progress recompute finished with errors", "updated", n, "err", err)
		return
	}
	cm.log.Info("campaign progress recomputed", "updated", n, "duration_ms", time.Since(start).Milliseconds())
}

func (cm *CronManager) Jobs() int {
	return len(cm.cron.Entries())
}

func (cm *CronManager) Start() {
	cm.log.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (cm *CronManager) Stop(ctx context.Context) {
	cm.log.Info("stopping cron scheduler")
	select {
	case <-cm.cron.Stop().Done():
	case <-ctx.Done():
		cm.log.Warn("cron job still running at shutdown")
	}
}
