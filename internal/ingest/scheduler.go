package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/store"
)

// Scheduler runs periodic housekeeping for the ingest side: pruning the raw
// payload archive and logging how many readings are stored.
type Scheduler struct {
	store           *store.Store
	log             zerolog.Logger
	retentionDays   int
	cleanupInterval time.Duration
	statsInterval   time.Duration
}

func NewScheduler(st *store.Store, retentionDays int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:           st,
		log:             log.With().Str("component", "scheduler").Logger(),
		retentionDays:   retentionDays,
		cleanupInterval: 6 * time.Hour,
		statsInterval:   1 * time.Hour,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.cleanup(ctx)
	s.logStats(ctx)

	cleanupTicker := time.NewTicker(s.cleanupInterval)
	statsTicker := time.NewTicker(s.statsInterval)
	defer cleanupTicker.Stop()
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("shutting down")
			return
		case <-cleanupTicker.C:
			s.cleanup(ctx)
		case <-statsTicker.C:
			s.logStats(ctx)
		}
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if s.retentionDays <= 0 {
		return
	}
	n, err := s.store.CleanupOldRawPayloads(ctx, s.retentionDays)
	if err != nil {
		s.log.Error().Err(err).Msg("cleanup raw payloads")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Int("retention_days", s.retentionDays).Msg("pruned raw payloads")
	}
}

func (s *Scheduler) logStats(ctx context.Context) {
	n, err := s.store.CountReadings(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("count readings")
		return
	}
	counts, err := s.store.RawPayloadCounts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("count raw payloads")
		return
	}
	s.log.Info().Int("readings", n).Interface("raw_payloads", counts).Msg("store stats")
}
