package export

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	got := Encode(Header, [][]string{
		{"1", "23.5", "2024-01-01 10:00:00"},
		{"2", "-", "a,b"},
	})
	want := "S.No,Temperature (°C),Timestamp\n" +
		"1,23.5,2024-01-01 10:00:00\n" +
		"2,-,a,b\n"
	assert.Equal(t, want, string(got))
}

func TestEncode_HeaderOnly(t *testing.T) {
	assert.Equal(t, "S.No,Temperature (°C),Timestamp\n", string(Encode(Header, nil)))
}

func TestFileName(t *testing.T) {
	melbourne := time.FixedZone("AEST", 10*3600)
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), "polyhouse_data_2024-01-31.csv"},
		{time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC).In(melbourne), "polyhouse_data_2025-01-01.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(FilePrefix, tt.now))
	}
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := FileSink{Dir: dir}

	err := Deliver(context.Background(), sink, "out.csv", []byte("a,b\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(sink.Path("out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestResponseSink(t *testing.T) {
	w := httptest.NewRecorder()
	err := ResponseSink{W: w}.Deliver(context.Background(), "polyhouse_data_2024-01-31.csv", []byte("x\n"))
	require.NoError(t, err)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=polyhouse_data_2024-01-31.csv`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "x\n", w.Body.String())
}

type brokenSink struct{}

func (brokenSink) Kind() string { return "broken" }
func (brokenSink) Deliver(context.Context, string, []byte) error {
	return errors.New("unreachable")
}

func TestDeliver_WrapsError(t *testing.T) {
	err := Deliver(context.Background(), brokenSink{}, "x.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliver x.csv to broken")
}

func TestFTPSink_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sink := FTPSink{Addr: "127.0.0.1:1", Timeout: time.Second}
	err := sink.Deliver(ctx, "x.csv", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp dial")
}
