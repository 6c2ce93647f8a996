// Package source fetches the reading list from a Polyhouse API.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/httputil"
	"github.com/lox/polyhouse/internal/metrics"
	"github.com/lox/polyhouse/internal/models"
)

// DefaultRoot is where a locally running server publishes readings.
const DefaultRoot = "http://localhost:8080/sensors"

var (
	// ErrTransport covers unreachable servers and non-2xx responses.
	ErrTransport = errors.New("transport failure")
	// ErrPayload covers responses that are not a JSON array of readings.
	ErrPayload = errors.New("payload failure")
)

// Client fetches readings from {root}/data.
type Client struct {
	root       string
	httpClient *http.Client
	maxElapsed time.Duration
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxElapsed bounds how long retryable statuses are retried for. Zero
// disables retries.
func WithMaxElapsed(d time.Duration) Option {
	return func(cl *Client) { cl.maxElapsed = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log.With().Str("component", "source").Logger() }
}

func NewClient(root string, opts ...Option) *Client {
	c := &Client{
		root:       strings.TrimRight(root, "/"),
		httpClient: httputil.NewClient(),
		maxElapsed: 30 * time.Second,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) URL() string {
	return c.root + "/data"
}

// Fetch returns the full reading list in server order.
func (c *Client) Fetch(ctx context.Context) ([]models.Record, error) {
	start := time.Now()
	body, err := c.get(ctx)
	metrics.SourceFetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("transport_error").Inc()
		return nil, err
	}

	records, err := decode(body)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("payload_error").Inc()
		return nil, err
	}
	metrics.SourceFetchesTotal.WithLabelValues("ok").Inc()
	c.log.Debug().Int("records", len(records)).Dur("took", time.Since(start)).Msg("fetched readings")
	return records, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	url := c.URL()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: create request: %v", ErrTransport, err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: fetch %s: %v", ErrTransport, url, err))
		}
		defer resp.Body.Close()

		if retryable(resp.StatusCode) {
			c.log.Warn().Int("status", resp.StatusCode).Msg("data source unavailable, retrying")
			return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(b))))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: read body: %v", ErrTransport, err))
		}
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.maxElapsed > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 200 * time.Millisecond
		exp.MaxElapsedTime = c.maxElapsed
		bo = exp
	}
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func decode(body []byte) ([]models.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array, got %s", ErrPayload, preview(trimmed))
	}
	var records []models.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return records, nil
}

func preview(b []byte) string {
	if len(b) == 0 {
		return "empty body"
	}
	if len(b) > 40 {
		return strconv.Quote(string(b[:40])) + "..."
	}
	return strconv.Quote(string(b))
}
