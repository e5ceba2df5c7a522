package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/services"
)

// DigestScheduler periodically regenerates collective-narrative digests for
// users whose journals have grown since their last digest.
type DigestScheduler struct {
	dreamSvc services.DreamServiceProvider
	eventSvc services.EventServiceProvider
	schedule cron.Schedule
	nextRun  time.Time
	ticker   *time.Ticker
	done     chan bool
}

// NewDigestScheduler creates a scheduler gated by the given cron expression
// (standard 5-field syntax or descriptors like "@hourly").
func NewDigestScheduler(dreamSvc services.DreamServiceProvider, eventSvc services.EventServiceProvider, cronExpr string) (*DigestScheduler, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &DigestScheduler{
		dreamSvc: dreamSvc,
		eventSvc: eventSvc,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now()),
		done:     make(chan bool),
	}, nil
}

// Run starts the scheduler's ticking loop.
func (s *DigestScheduler) Run() {
	log.Info().Time("next_run", s.nextRun).Msg("Starting background digest scheduler...")
	s.ticker = time.NewTicker(1 * time.Minute)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping background digest scheduler.")
			return
		case <-s.ticker.C:
			now := time.Now()
			if now.After(s.nextRun) || now.Equal(s.nextRun) {
				s.refreshDigests()
				s.nextRun = s.schedule.Next(now)
			}
		}
	}
}

// Stop halts the scheduler.
func (s *DigestScheduler) Stop() {
	s.done <- true
}

// refreshDigests regenerates the collective narrative for every user with
// dreams newer than their latest digest.
func (s *DigestScheduler) refreshDigests() {
	ctx := context.Background()

	emails, err := s.dreamSvc.UsersNeedingDigest(ctx)
	if err != nil {
		log.Error().Err(err).Msg("DigestScheduler: Failed to find users needing digests")
		return
	}
	if len(emails) == 0 {
		return
	}

	log.Info().Int("users", len(emails)).Msg("DigestScheduler: Refreshing collective narratives")
	for _, email := range emails {
		if _, err := s.dreamSvc.CollectiveNarrative(ctx, email); err != nil {
			if errors.Is(err, apperrors.ErrNoDreams) {
				continue
			}
			log.Error().Err(err).Str("user", email).Msg("DigestScheduler: Failed to refresh digest")
			s.eventSvc.CreateEvent("digest.refresh.fail", "error",
				"Scheduled digest refresh failed: "+err.Error(), &email)
		}
	}
}
