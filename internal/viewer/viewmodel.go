// Package viewer holds the reading table's view model: the full record set,
// the current page, page size and search term, and the filter/paginate
// loop that turns them into rows for a Renderer.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/export"
	"github.com/lox/polyhouse/internal/models"
)

var (
	DefaultPageSizes = []int{5, 10, 20, 50}

	ErrPageSize = errors.New("page size not allowed")
)

const DefaultPageSize = 10

// Notices shown through Renderer.Notify.
const (
	NoticeLoadFailed = "Failed to load sensor data. Please try again later."
	NoticeNoData     = "No data available to export."
)

// Source yields the full record set.
type Source interface {
	Fetch(ctx context.Context) ([]models.Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]models.Record, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]models.Record, error) { return f(ctx) }

type Option func(*ViewModel)

// WithPageSizes sets the allowed page sizes. The first entry becomes the
// page size unless WithPageSize picks another.
func WithPageSizes(sizes ...int) Option {
	return func(vm *ViewModel) {
		var valid []int
		for _, s := range sizes {
			if s > 0 && !slices.Contains(valid, s) {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			vm.pageSizes = valid
			if !slices.Contains(valid, vm.pageSize) {
				vm.pageSize = valid[0]
			}
		}
	}
}

// WithPageSize sets the initial page size; sizes outside the allowed set
// are ignored.
func WithPageSize(size int) Option {
	return func(vm *ViewModel) {
		if slices.Contains(vm.pageSizes, size) {
			vm.pageSize = size
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(vm *ViewModel) {
		vm.log = log.With().Str("component", "viewer").Logger()
	}
}

// WithClock overrides time.Now, which dates export file names.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

// ViewModel is not safe for concurrent use. Callers run every interaction
// to completion before starting the next one.
type ViewModel struct {
	renderer  Renderer
	log       zerolog.Logger
	now       func() time.Time
	pageSizes []int

	records  []models.Record
	page     int
	pageSize int
	search   string
	last     Result
}

func New(r Renderer, opts ...Option) *ViewModel {
	vm := &ViewModel{
		renderer:  r,
		log:       zerolog.Nop(),
		now:       time.Now,
		pageSizes: DefaultPageSizes,
		page:      1,
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load fetches the record set from src. On success the records are replaced
// and the view is reset to page 1. On failure the previous records are kept,
// the user is notified and the error is returned.
func (vm *ViewModel) Load(ctx context.Context, src Source) error {
	records, err := src.Fetch(ctx)
	if err != nil {
		vm.LoadFailed(err)
		return fmt.Errorf("load records: %w", err)
	}
	vm.Replace(records)
	return nil
}

// Replace installs a freshly loaded record set. The slice is kept as is and
// must not be modified by the caller afterwards.
func (vm *ViewModel) Replace(records []models.Record) {
	vm.records = records
	vm.page = 1
	vm.log.Debug().Int("records", len(records)).Msg("records loaded")
	vm.Refresh()
}

// LoadFailed reports a failed load without touching the current records.
func (vm *ViewModel) LoadFailed(err error) {
	vm.log.Error().Err(err).Msg("error fetching data")
	vm.renderer.Notify(NoticeLoadFailed)
}

// Refresh recomputes the current page and renders it.
func (vm *ViewModel) Refresh() {
	vm.last = FilterAndPaginate(vm.records, vm.search, vm.page, vm.pageSize)
	vm.page = vm.last.Page
	Render(vm.renderer, BuildView(vm.last))
}

// SetPageSize changes the page size and returns to page 1.
func (vm *ViewModel) SetPageSize(size int) error {
	if !slices.Contains(vm.pageSizes, size) {
		return fmt.Errorf("%w: %d", ErrPageSize, size)
	}
	vm.setPageSize(size)
	return nil
}

// setPageSize applies a size already known to be allowed.
func (vm *ViewModel) setPageSize(size int) {
	vm.pageSize = size
	vm.page = 1
	vm.Refresh()
}

// CyclePageSize moves to the next (delta > 0) or previous allowed page
// size, wrapping at either end.
func (vm *ViewModel) CyclePageSize(delta int) {
	i := slices.Index(vm.pageSizes, vm.pageSize)
	n := len(vm.pageSizes)
	i = ((i+delta)%n + n) % n
	vm.setPageSize(vm.pageSizes[i])
}

// SetSearch changes the search term and returns to page 1.
func (vm *ViewModel) SetSearch(term string) {
	vm.search = term
	vm.page = 1
	vm.Refresh()
}

// SetPage jumps to page n, clamped into range.
func (vm *ViewModel) SetPage(n int) {
	vm.page = n
	vm.Refresh()
}

// Prev moves back one page if there is one.
func (vm *ViewModel) Prev() bool {
	if vm.page <= 1 {
		return false
	}
	vm.page--
	vm.Refresh()
	return true
}

// Next moves forward one page if there is one.
func (vm *ViewModel) Next() bool {
	if vm.page >= vm.last.TotalPages {
		return false
	}
	vm.page++
	vm.Refresh()
	return true
}

// Export writes the full record set, ignoring the search term and page, to
// sink. With no records it notifies the user and returns export.ErrNoData.
func (vm *ViewModel) Export(ctx context.Context, sink export.Sink) (string, error) {
	if len(vm.records) == 0 {
		vm.renderer.Notify(NoticeNoData)
		return "", export.ErrNoData
	}

	rows := make([][]string, 0, len(vm.records))
	for i, rec := range vm.records {
		row := NewRow(i+1, rec)
		rows = append(rows, []string{strconv.Itoa(row.Index), row.Temperature, row.Timestamp})
	}

	name := export.FileName(export.FilePrefix, vm.now())
	if err := export.Deliver(ctx, sink, name, export.Encode(export.Header, rows)); err != nil {
		vm.log.Error().Err(err).Str("file", name).Msg("export failed")
		return "", err
	}
	vm.log.Info().Str("file", name).Str("sink", sink.Kind()).Int("rows", len(rows)).Msg("exported")
	return name, nil
}

func (vm *ViewModel) Records() []models.Record { return vm.records }
func (vm *ViewModel) Page() int                { return vm.page }
func (vm *ViewModel) PageSize() int            { return vm.pageSize }
func (vm *ViewModel) PageSizes() []int         { return slices.Clone(vm.pageSizes) }
func (vm *ViewModel) Search() string           { return vm.search }

// Result returns the last computed page.
func (vm *ViewModel) Result() Result { return vm.last }
