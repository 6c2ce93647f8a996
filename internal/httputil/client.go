package httputil

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout = 15 * time.Second
	UserAgent      = "Polyhouse/1.0"
)

// NewClient returns an HTTP client with the standard timeout that identifies
// itself as Polyhouse on every request.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: userAgentTransport{next: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	next http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", UserAgent)
	return t.next.RoundTrip(r)
}
