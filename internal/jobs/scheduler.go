package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ConsultationPurger soft-deletes TEMPORARY consultations created before the
// cutoff and reports how many rows it touched.
type ConsultationPurger interface {
	PurgeStaleTemporary(ctx context.Context, cutoff time.Time) (int64, error)
}

type Scheduler struct {
	cron          *cron.Cron
	consultations ConsultationPurger
	maxAge        time.Duration
	log           zerolog.Logger
}

func NewScheduler(consultations ConsultationPurger, maxAge time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		consultations: consultations,
		maxAge:        maxAge,
		log:           log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.purgeStaleConsultations); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded so a
// stuck job cannot hang shutdown.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out with a job still running")
	}
}

// purgeStaleConsultations removes walk-in consultations that were never saved.
// Generated images stay in place; only the consultation row is retired.
func (s *Scheduler) purgeStaleConsultations() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.maxAge)
	purged, err := s.consultations.PurgeStaleTemporary(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("purge stale consultations failed")
		return
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Msg("purged stale temporary consultations")
	}
}
