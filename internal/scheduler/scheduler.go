// Package scheduler runs the background jobs that keep membership state
// consistent with the clock: expiring lapsed memberships, completing payment
// plans that hit their billing cap, and sending expiration reminders.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"memberd/internal/clock"
	"memberd/internal/config"
	"memberd/internal/events"
	leveldomain "memberd/internal/level/domain"
	"memberd/internal/membership/domain"
	obsmetrics "memberd/internal/observability/metrics"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	MembershipSvc domain.Service
	Memberships   domain.Repository
	Levels        leveldomain.Repository
	Bus           *events.Bus
	Holder        *config.SchedulerConfigHolder
}

type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	membershipSvc domain.Service
	memberships   domain.Repository
	levels        leveldomain.Repository
	bus           *events.Bus
	holder        *config.SchedulerConfigHolder
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.MembershipSvc == nil || p.Memberships == nil || p.Levels == nil || p.Bus == nil || p.Holder == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:         p.Clock,
		membershipSvc: p.MembershipSvc,
		memberships:   p.Memberships,
		levels:        p.Levels,
		bus:           p.Bus,
		holder:        p.Holder,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	// A deadline is a soft failure: the next tick picks up where this one
	// stopped, so log and carry on instead of failing the run.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		schedMetrics.IncJobError(name, err)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	cfg := s.holder.Current()

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"expire_memberships", s.isJobEnabled(cfg, "expire_memberships"), func(ctx context.Context) error {
			return s.runJob(ctx, "expire_memberships", 30*time.Second, func(ctx context.Context) error {
				return s.ExpireMembershipsJob(ctx, cfg.BatchSize)
			})
		}},
		{"complete_payment_plans", s.isJobEnabled(cfg, "complete_payment_plans"), func(ctx context.Context) error {
			return s.runJob(ctx, "complete_payment_plans", 30*time.Second, func(ctx context.Context) error {
				return s.CompletePaymentPlansJob(ctx, cfg.BatchSize)
			})
		}},
		{"send_expiration_reminders", s.isJobEnabled(cfg, "send_expiration_reminders"), func(ctx context.Context) error {
			return s.runJob(ctx, "send_expiration_reminders", 30*time.Second, func(ctx context.Context) error {
				return s.SendExpirationRemindersJob(ctx, cfg.BatchSize, cfg.ReminderDays)
			})
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.holder.Current().RunInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(interval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(cfg config.SchedulerConfig, jobName string) bool {
	// An empty EnabledJobs list enables every job.
	if len(cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpireMembershipsJob transitions memberships whose expiration date has
// passed. Each membership is expired in its own service call so one bad row
// does not poison the batch.
func (s *Scheduler) ExpireMembershipsJob(ctx context.Context, batchSize int) error {
	now := s.clock.Now()
	rows, err := s.memberships.ExpiredBefore(ctx, s.db, now, batchSize)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, m := range rows {
		if err := ctx.Err(); err != nil {
			jobErr = errors.Join(jobErr, err)
			break
		}
		if err := s.membershipSvc.ExpireByID(ctx, m.ID); err != nil {
			s.log.Warn("expire membership failed",
				zap.Int64("membership_id", m.ID),
				zap.Error(err),
			)
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}

	if processed > 0 {
		s.log.Info("expired memberships", zap.Int("count", processed))
	}
	obsmetrics.Scheduler().AddBatchProcessed("expire_memberships", processed)
	return jobErr
}

// CompletePaymentPlansJob finishes payment plans whose billing count reached
// the configured maximum, applying the level's after-final-payment policy.
func (s *Scheduler) CompletePaymentPlansJob(ctx context.Context, batchSize int) error {
	rows, err := s.memberships.DuePaymentPlans(ctx, s.db, batchSize)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for _, m := range rows {
		if err := ctx.Err(); err != nil {
			jobErr = errors.Join(jobErr, err)
			break
		}
		if err := s.membershipSvc.CompletePaymentPlan(ctx, m.ID); err != nil {
			if errors.Is(err, domain.ErrPaymentPlanComplete) {
				continue
			}
			s.log.Warn("complete payment plan failed",
				zap.Int64("membership_id", m.ID),
				zap.Error(err),
			)
			jobErr = errors.Join(jobErr, err)
			continue
		}
		processed++
	}

	if processed > 0 {
		s.log.Info("completed payment plans", zap.Int("count", processed))
	}
	obsmetrics.Scheduler().AddBatchProcessed("complete_payment_plans", processed)
	return jobErr
}

// SendExpirationRemindersJob publishes an expiring-soon event for active
// non-renewing memberships inside the reminder window. The sent flag keeps
// the reminder at one per term; renewing clears it.
func (s *Scheduler) SendExpirationRemindersJob(ctx context.Context, batchSize, reminderDays int) error {
	now := s.clock.Now()
	until := now.AddDate(0, 0, reminderDays)
	rows, err := s.memberships.ExpiringBetween(ctx, s.db, now, until, batchSize)
	if err != nil {
		return err
	}

	var jobErr error
	processed := 0
	for i := range rows {
		m := &rows[i]
		if err := ctx.Err(); err != nil {
			jobErr = errors.Join(jobErr, err)
			break
		}

		levelName := ""
		if lvl, err := s.levels.FindByID(ctx, s.db, m.LevelID); err == nil && lvl != nil {
			levelName = lvl.Name
		}

		m.ExpirationReminderSent = true
		m.UpdatedAt = now
		if err := s.memberships.Update(ctx, s.db, m); err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}

		s.bus.Publish(ctx, events.MembershipEvent{
			Topic:        events.TopicMembershipExpiringSoon,
			MembershipID: m.ID,
			CustomerID:   m.CustomerID,
			LevelID:      m.LevelID,
			LevelName:    levelName,
			ExpiresAt:    m.ExpirationAt,
			OccurredAt:   now,
		})
		processed++
	}

	if processed > 0 {
		s.log.Info("sent expiration reminders", zap.Int("count", processed))
	}
	obsmetrics.Scheduler().AddBatchProcessed("send_expiration_reminders", processed)
	return jobErr
}
