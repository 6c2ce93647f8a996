package export

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/polyhouse/internal/metrics"
)

// Sink is somewhere an exported file can be delivered.
type Sink interface {
	Kind() string
	Deliver(ctx context.Context, name string, data []byte) error
}

// Deliver hands data to sink and records the outcome.
func Deliver(ctx context.Context, sink Sink, name string, data []byte) error {
	err := sink.Deliver(ctx, name, data)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ExportsTotal.WithLabelValues(sink.Kind(), result).Inc()
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", name, sink.Kind(), err)
	}
	return nil
}

// FileSink writes exports into a local directory.
type FileSink struct {
	Dir string
}

func (f FileSink) Kind() string { return "file" }

func (f FileSink) Deliver(_ context.Context, name string, data []byte) error {
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// Path returns where a file with the given name ends up.
func (f FileSink) Path(name string) string {
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// FTPSink uploads exports to an FTP server. Empty credentials log in
// anonymously.
type FTPSink struct {
	Addr     string // host:port
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

func (f FTPSink) Kind() string { return "ftp" }

func (f FTPSink) Deliver(ctx context.Context, name string, data []byte) error {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	conn, err := ftp.Dial(f.Addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := f.User, f.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	dest := name
	if f.Dir != "" {
		dest = path.Join(f.Dir, name)
	}
	if err := conn.Stor(dest, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("ftp stor %s: %w", dest, err)
	}
	return nil
}

// ResponseSink sends the export to a browser as a file download.
type ResponseSink struct {
	W http.ResponseWriter
}

func (r ResponseSink) Kind() string { return "http" }

func (r ResponseSink) Deliver(_ context.Context, name string, data []byte) error {
	h := r.W.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	r.W.WriteHeader(http.StatusOK)
	_, err := r.W.Write(data)
	return err
}
