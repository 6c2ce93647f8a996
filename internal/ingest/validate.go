package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidPayload = errors.New("invalid data")
	ErrInvalidState   = errors.New("invalid state")
)

var validate = validator.New()

// Payload is what a device reports. Only presence of the temperature key is
// checked: null is stored as a missing reading and any number, including
// out-of-range ones, is accepted.
type Payload struct {
	Temperature *float64
	Present     bool
}

// RelayCommand switches a relay.
type RelayCommand struct {
	State string `json:"state" validate:"oneof=ON OFF"`
}

// DecodePayload accepts {"temperature": 21.5}, {"temperature": null},
// {"temperature": "21.5"} or a bare number.
func DecodePayload(raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	if trimmed[0] != '{' {
		v, err := parseNumber(string(trimmed))
		if err != nil {
			return Payload{}, err
		}
		return Payload{Temperature: &v, Present: true}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	value, ok := fields["temperature"]
	if !ok {
		return Payload{}, fmt.Errorf("%w: temperature is required", ErrInvalidPayload)
	}

	p := Payload{Present: true}
	value = bytes.TrimSpace(value)
	switch {
	case len(value) == 0 || bytes.Equal(value, []byte("null")):
	case value[0] == '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		v, err := parseNumber(strings.TrimSpace(s))
		if err != nil {
			return Payload{}, err
		}
		p.Temperature = &v
	default:
		var v float64
		if err := json.Unmarshal(value, &v); err != nil {
			return Payload{}, fmt.Errorf("%w: temperature %s is not a number", ErrInvalidPayload, value)
		}
		p.Temperature = &v
	}
	return p, nil
}

// parseNumber reads a finite float. The REAL column cannot hold text, so
// non-numeric values are rejected rather than stored.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPayload, s)
	}
	return v, nil
}

func (p Payload) Validate() error {
	if !p.Present {
		return fmt.Errorf("%w: temperature is required", ErrInvalidPayload)
	}
	return nil
}

// NormalizeRelayCommand upper-cases the state and checks it is ON or OFF.
func NormalizeRelayCommand(cmd RelayCommand) (RelayCommand, error) {
	cmd.State = strings.ToUpper(strings.TrimSpace(cmd.State))
	if err := validate.Struct(cmd); err != nil {
		return RelayCommand{}, fmt.Errorf("%w: %q", ErrInvalidState, cmd.State)
	}
	return cmd, nil
}
