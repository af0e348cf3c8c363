// Package worker hosts the background jobs that run beside the HTTP
// surface, currently the periodic SLA breach sweep.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/triage"
)

// SweepWorker runs the SLA monitor on a fixed schedule. A Redis lease
// keeps the sweep single-flight across replicas; the lease only sheds
// duplicate work, correctness rests on the monitor's conditional breach
// update.
type SweepWorker struct {
	monitor    *triage.SLAMonitor
	redis      *redis.Client
	cron       *cron.Cron
	interval   time.Duration
	leaseKey   string
	leaseTTL   time.Duration
	timeout    time.Duration
	instanceID string
	logger     *zap.Logger
}

// SweepWorkerDependencies bundles collaborators for the sweep worker.
type SweepWorkerDependencies struct {
	Monitor  *triage.SLAMonitor
	Redis    *redis.Client
	Interval time.Duration
	LeaseTTL time.Duration
	Logger   *zap.Logger
}

// NewSweepWorker constructs the worker. Redis may be nil for
// single-instance deployments; the lease is skipped then.
func NewSweepWorker(deps SweepWorkerDependencies) *SweepWorker {
	interval := deps.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	leaseTTL := deps.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = interval - interval/10
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepWorker{
		monitor:    deps.Monitor,
		redis:      deps.Redis,
		interval:   interval,
		leaseKey:   "triage:sla:sweep:lease",
		leaseTTL:   leaseTTL,
		timeout:    interval,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Start schedules the sweep and returns immediately. An overrunning
// sweep suppresses the next tick instead of stacking.
func (w *SweepWorker) Start() error {
	w.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{w.logger}),
	))
	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, w.runOnce); err != nil {
		return fmt.Errorf("schedule sla sweep: %w", err)
	}
	w.cron.Start()
	w.logger.Info("sla sweep scheduled",
		zap.Duration("interval", w.interval),
		zap.Duration("lease_ttl", w.leaseTTL))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish, up
// to the context deadline.
func (w *SweepWorker) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	done := w.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("sla sweep still running at shutdown")
	}
}

func (w *SweepWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if !w.acquireLease(ctx) {
		w.logger.Debug("sla sweep lease held elsewhere, skipping round")
		return
	}

	if _, err := w.monitor.Sweep(ctx); err != nil {
		w.logger.Error("sla sweep failed", zap.Error(err))
	}
}

// acquireLease claims the cross-replica lease with SET NX PX. A Redis
// outage does not stop the sweep; duplicated rounds are harmless.
func (w *SweepWorker) acquireLease(ctx context.Context) bool {
	if w.redis == nil {
		return true
	}
	ok, err := w.redis.SetNX(ctx, w.leaseKey, w.instanceID, w.leaseTTL).Result()
	if err != nil {
		w.logger.Warn("sweep lease check failed, sweeping anyway", zap.Error(err))
		return true
	}
	return ok
}

// cronLogger adapts zap to the cron logging interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
