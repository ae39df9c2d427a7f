// Package jobs runs the API's background work on a cron schedule: the
// periodic heartbeat row and the purge of expired idempotency records.
//
// Jobs never crash the process. Failures are logged and the next tick runs
// as usual.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/config"
	"github.com/tbourn/test-stack-api/internal/repo"
)

// HeartbeatMessage is stored on every heartbeat row written by the job.
const HeartbeatMessage = "Heartbeat from background job"

// PurgeSchedule is the cron schedule of the idempotency purge.
const PurgeSchedule = "@hourly"

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("jobs: scheduler already started")

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	db  *gorm.DB
	cfg config.JobsConfig

	// Now is the clock used for trace ids and purge cutoffs.
	Now func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	started bool
}

// NewScheduler returns a stopped Scheduler bound to db.
func NewScheduler(db *gorm.DB, cfg config.JobsConfig) *Scheduler {
	return &Scheduler{db: db, cfg: cfg, Now: time.Now}
}

// Start runs the heartbeat once, then schedules it every
// cfg.HeartbeatInterval together with the hourly purge.
//
// When jobs are disabled Start only logs and returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Info().Msg("Jobs disabled, skipping heartbeat job")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log.Logger})))

	every := "@every " + s.cfg.HeartbeatInterval.String()
	if _, err := c.AddFunc(every, func() { _ = s.Heartbeat(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule heartbeat %q: %w", every, err)
	}
	if _, err := c.AddFunc(PurgeSchedule, func() { _, _ = s.PurgeIdempotency(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule idempotency purge: %w", err)
	}

	_ = s.Heartbeat(runCtx)

	c.Start()
	s.cron, s.cancel, s.started = c, cancel, true

	log.Info().
		Dur("interval", s.cfg.HeartbeatInterval).
		Msg("Heartbeat job scheduled")
	return nil
}

// Stop halts scheduling and waits for running jobs until ctx is done.
// It is a no-op on a scheduler that is not running.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	done := s.cron.Stop()
	defer s.cancel()

	select {
	case <-done.Done():
		log.Info().Msg("Background jobs stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop jobs: %w", ctx.Err())
	}
}

// Heartbeat inserts one heartbeat row. Errors are logged and returned; the
// scheduler ignores them.
func (s *Scheduler) Heartbeat(ctx context.Context) error {
	traceID := fmt.Sprintf("job-heartbeat-%d", s.Now().UnixMilli())
	logger := log.With().Str("trace_id", traceID).Str("job", "heartbeat").Logger()
	ctx = logger.WithContext(ctx)

	ctx, span := otel.Tracer("jobs/Scheduler").Start(ctx, "Heartbeat")
	defer span.End()
	span.SetAttributes(attribute.String("trace.id", traceID))

	logger.Info().Msg("Running heartbeat job...")
	hb, err := repo.CreateHeartbeat(ctx, s.db, HeartbeatMessage)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Heartbeat job failed")
		return err
	}
	logger.Info().Str("heartbeat_id", hb.ID).Msg("Heartbeat created successfully")
	return nil
}

// PurgeIdempotency deletes idempotency records that expired before now.
func (s *Scheduler) PurgeIdempotency(ctx context.Context) (int64, error) {
	logger := log.With().Str("job", "idempotency-purge").Logger()
	n, err := repo.PurgeExpiredIdempotency(ctx, s.db, s.Now().UTC())
	if err != nil {
		logger.Error().Err(err).Msg("Idempotency purge failed")
		return 0, err
	}
	if n > 0 {
		logger.Info().Int64("deleted", n).Msg("Expired idempotency records purged")
	}
	return n, nil
}

// cronLogger routes cron's internal logging (panics caught by Recover) to zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
