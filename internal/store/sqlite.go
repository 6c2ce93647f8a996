package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/models"
)

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}
}

// InsertReading stores a reading. RecordedAt is truncated to the second and
// stored in UTC so that lexical and chronological order agree.
func (s *Store) InsertReading(ctx context.Context, r models.Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (id, temperature, recorded_at)
		VALUES (?, ?, ?)
	`, r.ID, r.Temperature, r.RecordedAt.UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("insert reading %s: %w", r.ID, err)
	}
	return nil
}

// ListReadings returns every reading, newest first.
func (s *Store) ListReadings(ctx context.Context) ([]models.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, temperature, recorded_at
		FROM readings
		ORDER BY recorded_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.Temperature, &r.RecordedAt); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// LatestReading returns the newest reading, or nil when there are none.
func (s *Store) LatestReading(ctx context.Context) (*models.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, temperature, recorded_at
		FROM readings
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT 1
	`)

	var r models.Reading
	err := row.Scan(&r.ID, &r.Temperature, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Records returns every reading in its served form, newest first. Its
// signature matches viewer.Source so the dashboard can load straight from
// the database.
func (s *Store) Records(ctx context.Context) ([]models.Record, error) {
	readings, err := s.ListReadings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	records := make([]models.Record, 0, len(readings))
	for _, r := range readings {
		records = append(records, r.Record())
	}
	return records, nil
}

func (s *Store) CountReadings(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}
