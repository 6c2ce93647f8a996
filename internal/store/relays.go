package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lox/polyhouse/internal/models"
)

func (s *Store) SetRelayState(ctx context.Context, device, state string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_control (device, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, device, state, at.UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("set relay %s: %w", device, err)
	}
	return nil
}

// GetRelayState returns the stored state of a device, or nil if it has never
// been switched.
func (s *Store) GetRelayState(ctx context.Context, device string) (*models.RelayState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device, state, updated_at FROM relay_control WHERE device = ?
	`, device)

	var rs models.RelayState
	err := row.Scan(&rs.Device, &rs.State, &rs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *Store) ListRelayStates(ctx context.Context) ([]models.RelayState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device, state, updated_at FROM relay_control ORDER BY device
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.RelayState
	for rows.Next() {
		var rs models.RelayState
		if err := rows.Scan(&rs.Device, &rs.State, &rs.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, rs)
	}
	return states, rows.Err()
}
