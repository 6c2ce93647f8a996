// Package ingest accepts readings and relay commands from devices and
// stores them.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/metrics"
	"github.com/lox/polyhouse/internal/models"
	"github.com/lox/polyhouse/internal/store"
)

const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

type Ingestor struct {
	store *store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewIngestor(st *store.Store, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store: st,
		log:   log.With().Str("component", "ingest").Logger(),
		now:   time.Now,
	}
}

// Record stores a validated payload as a new reading stamped with the
// current time.
func (i *Ingestor) Record(ctx context.Context, source string, p Payload) (models.Reading, error) {
	if err := p.Validate(); err != nil {
		metrics.IngestRejected.WithLabelValues(source).Inc()
		return models.Reading{}, err
	}

	r := models.Reading{
		ID:         uuid.NewString(),
		RecordedAt: i.now().UTC().Truncate(time.Second),
	}
	if p.Temperature != nil {
		r.Temperature = sql.NullFloat64{Float64: *p.Temperature, Valid: true}
	}
	if err := i.store.InsertReading(ctx, r); err != nil {
		return models.Reading{}, err
	}

	metrics.ReadingsIngested.WithLabelValues(source).Inc()
	ev := i.log.Debug().Str("source", source).Str("id", r.ID)
	if r.Temperature.Valid {
		ev = ev.Float64("temperature", r.Temperature.Float64)
	}
	ev.Msg("reading stored")
	return r, nil
}

// RecordRaw decodes a raw device payload, stores the reading and archives
// the payload.
func (i *Ingestor) RecordRaw(ctx context.Context, source string, raw []byte) (models.Reading, error) {
	p, err := DecodePayload(raw)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(source).Inc()
		return models.Reading{}, err
	}

	r, err := i.Record(ctx, source, p)
	if err != nil {
		return models.Reading{}, err
	}

	id, err := i.store.StoreRawPayload(ctx, source, r.ID, raw)
	switch {
	case err != nil:
		// the reading is already stored; a missing archive entry is not fatal
		i.log.Warn().Err(err).Str("id", r.ID).Msg("archive raw payload")
	case id == 0:
		// identical bytes are archived once, against the first reading
		i.log.Debug().Str("source", source).Str("id", r.ID).Msg("raw payload already archived")
	}
	return r, nil
}

// SetRelay records a relay command for device.
func (i *Ingestor) SetRelay(ctx context.Context, device string, cmd RelayCommand) (models.RelayState, error) {
	if device == "" {
		return models.RelayState{}, errors.New("device is required")
	}
	cmd, err := NormalizeRelayCommand(cmd)
	if err != nil {
		return models.RelayState{}, err
	}

	rs := models.RelayState{Device: device, State: cmd.State, UpdatedAt: i.now().UTC().Truncate(time.Second)}
	if err := i.store.SetRelayState(ctx, rs.Device, rs.State, rs.UpdatedAt); err != nil {
		return models.RelayState{}, fmt.Errorf("set relay: %w", err)
	}
	i.log.Info().Str("device", device).Str("state", cmd.State).Msg("relay switched")
	return rs, nil
}
