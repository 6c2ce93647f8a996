package models

import (
	"database/sql"
	"time"
)

// TimestampLayout is the format readings are served in.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one sensor reading as served to viewers. Both fields are
// optional: devices can report a null temperature and older payloads may
// omit the timestamp.
type Record struct {
	ID               string   `json:"_id,omitempty"`
	WaterTemperature *float64 `json:"waterTemperature"`
	Timestamp        *string  `json:"timestamp"`
}

// Reading is the stored form of a Record.
type Reading struct {
	ID          string
	Temperature sql.NullFloat64
	RecordedAt  time.Time
}

// Record converts a stored reading to its served form.
func (r Reading) Record() Record {
	rec := Record{ID: r.ID}
	if r.Temperature.Valid {
		t := r.Temperature.Float64
		rec.WaterTemperature = &t
	}
	if !r.RecordedAt.IsZero() {
		ts := r.RecordedAt.UTC().Format(TimestampLayout)
		rec.Timestamp = &ts
	}
	return rec
}

type RelayState struct {
	Device    string
	State     string // "ON" or "OFF"
	UpdatedAt time.Time
}

const (
	RelayOn  = "ON"
	RelayOff = "OFF"
)
