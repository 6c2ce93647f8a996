package viewer

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/polyhouse/internal/export"
	"github.com/lox/polyhouse/internal/models"
)

type fakeRenderer struct {
	rows    []Row
	summary string
	prev    bool
	next    bool
	notices []string
	renders int
}

func (f *fakeRenderer) RenderRows(rows []Row) {
	f.rows = rows
	f.renders++
}
func (f *fakeRenderer) SetSummary(text string)        { f.summary = text }
func (f *fakeRenderer) SetNavigation(prev, next bool) { f.prev, f.next = prev, next }
func (f *fakeRenderer) Notify(msg string)             { f.notices = append(f.notices, msg) }
func (f *fakeRenderer) view() View                    { return View{f.rows, f.summary, f.prev, f.next} }

type memorySink struct {
	name string
	data []byte
	err  error
}

func (m *memorySink) Kind() string { return "memory" }
func (m *memorySink) Deliver(_ context.Context, name string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.name, m.data = name, data
	return nil
}

func staticSource(records []models.Record) Source {
	return SourceFunc(func(context.Context) ([]models.Record, error) { return records, nil })
}

func failingSource(err error) Source {
	return SourceFunc(func(context.Context) ([]models.Record, error) { return nil, err })
}

func TestViewModel_LoadRendersFirstPage(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1, 5, 10))

	require.NoError(t, vm.Load(context.Background(), staticSource(twoRecords())))

	assert.Equal(t, []Row{{Index: 1, Temperature: "23.5", Timestamp: "2024-01-01T10:00"}}, r.rows)
	assert.Equal(t, "Page 1 of 2 (2 records)", r.summary)
	assert.False(t, r.prev)
	assert.True(t, r.next)
	assert.Empty(t, r.notices)
}

func TestViewModel_LoadResetsPage(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1))
	vm.Replace(twoRecords())
	require.True(t, vm.Next())
	require.Equal(t, 2, vm.Page())

	require.NoError(t, vm.Load(context.Background(), staticSource(twoRecords())))
	assert.Equal(t, 1, vm.Page())
}

func TestViewModel_LoadFailureKeepsRecords(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1))

	boom := errors.New("connection refused")
	err := vm.Load(context.Background(), failingSource(boom))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, vm.Records())
	assert.Equal(t, []string{NoticeLoadFailed}, r.notices)
	assert.Zero(t, r.renders)

	require.NoError(t, vm.Load(context.Background(), staticSource(twoRecords())))
	require.True(t, vm.Next())

	err = vm.Load(context.Background(), failingSource(boom))
	require.Error(t, err)
	assert.Len(t, vm.Records(), 2)
	assert.Equal(t, 2, vm.Page(), "a failed reload leaves the view alone")
	assert.Len(t, r.notices, 2)
}

func TestViewModel_NextIsGuardedAtLastPage(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1))
	vm.Replace(twoRecords())

	assert.True(t, vm.Next())
	assert.False(t, r.next)
	renders := r.renders

	assert.False(t, vm.Next())
	assert.Equal(t, 2, vm.Page())
	assert.Equal(t, renders, r.renders, "a refused next does not re-render")

	assert.True(t, vm.Prev())
	assert.False(t, vm.Prev())
	assert.Equal(t, 1, vm.Page())
}

func TestViewModel_SearchResetsAndClamps(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1))
	vm.Replace(twoRecords())
	vm.Next()

	vm.SetSearch("25")
	assert.Equal(t, 1, vm.Page())
	assert.Equal(t, "Page 1 of 1 (1 records)", r.summary)
	require.Len(t, r.rows, 1)
	assert.Equal(t, "25.1", r.rows[0].Temperature)
	assert.False(t, r.prev)
	assert.False(t, r.next)
}

func TestViewModel_SetPageSize(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1, 2))
	vm.Replace(twoRecords())
	vm.Next()

	require.NoError(t, vm.SetPageSize(2))
	assert.Equal(t, 1, vm.Page())
	assert.Len(t, r.rows, 2)

	err := vm.SetPageSize(3)
	assert.ErrorIs(t, err, ErrPageSize)
	assert.Equal(t, 2, vm.PageSize())

	vm.CyclePageSize(1)
	assert.Equal(t, 1, vm.PageSize())
	vm.CyclePageSize(-1)
	assert.Equal(t, 2, vm.PageSize())
}

func TestViewModel_CyclePageSizeResetsPage(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1, 2, 5))
	vm.Replace(twoRecords())
	vm.Next()
	require.Equal(t, 2, vm.Page())

	vm.CyclePageSize(-1)
	assert.Equal(t, 5, vm.PageSize(), "wraps backwards to the largest size")
	assert.Equal(t, 1, vm.Page())
	assert.Len(t, r.rows, 2)
	assert.False(t, r.next)
}

func TestViewModel_Options(t *testing.T) {
	vm := New(&fakeRenderer{})
	assert.Equal(t, DefaultPageSize, vm.PageSize())
	assert.Equal(t, DefaultPageSizes, vm.PageSizes())

	vm = New(&fakeRenderer{}, WithPageSizes(25, 0, 25, 100), WithPageSize(100))
	assert.Equal(t, []int{25, 100}, vm.PageSizes())
	assert.Equal(t, 100, vm.PageSize())

	vm = New(&fakeRenderer{}, WithPageSize(7))
	assert.Equal(t, DefaultPageSize, vm.PageSize())
}

func TestViewModel_SetPageClamps(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1))
	vm.Replace(twoRecords())

	vm.SetPage(99)
	assert.Equal(t, 2, vm.Page())
	vm.SetPage(-1)
	assert.Equal(t, 1, vm.Page())
}

func TestViewModel_RefreshIsIdempotent(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(3))
	vm.Replace(randomRecords(rand.New(rand.NewSource(7)), 20))
	vm.SetSearch("2")
	vm.Next()

	before := r.view()
	vm.Refresh()
	assert.Equal(t, before, r.view())
}

func TestViewModel_PageStaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	terms := []string{"", "1", "2024-0", "3.", "nothing", " 2 "}

	r := &fakeRenderer{}
	vm := New(r, WithPageSizes(1, 2, 5, 10))
	vm.Replace(randomRecords(rng, 37))

	for i := 0; i < 500; i++ {
		switch rng.Intn(5) {
		case 0:
			vm.Prev()
		case 1:
			vm.Next()
		case 2:
			vm.CyclePageSize(1)
		case 3:
			vm.SetSearch(terms[rng.Intn(len(terms))])
		case 4:
			vm.SetPage(rng.Intn(50) - 10)
		}
		res := vm.Result()
		require.GreaterOrEqual(t, vm.Page(), 1)
		require.LessOrEqual(t, vm.Page(), max(1, res.TotalPages))
		require.Equal(t, res.Page, vm.Page())
	}
}

func TestViewModel_NullRecordRendersPlaceholders(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r)
	vm.Replace([]models.Record{{}})

	require.Len(t, r.rows, 1)
	assert.Equal(t, Row{Index: 1, Temperature: "-", Timestamp: "-"}, r.rows[0])

	vm.SetSearch("-")
	assert.Empty(t, r.rows)
	assert.Equal(t, "Page 1 of 1 (0 records)", r.summary)
}

func TestViewModel_ExportNoData(t *testing.T) {
	r := &fakeRenderer{}
	vm := New(r)
	sink := &memorySink{}

	_, err := vm.Export(context.Background(), sink)
	assert.ErrorIs(t, err, export.ErrNoData)
	assert.Equal(t, []string{NoticeNoData}, r.notices)
	assert.Empty(t, sink.name)
	assert.Nil(t, sink.data)
}

func TestViewModel_ExportIgnoresFilterAndPage(t *testing.T) {
	r := &fakeRenderer{}
	day := time.Date(2024, 7, 9, 23, 30, 0, 0, time.UTC)
	vm := New(r, WithPageSizes(1), WithClock(func() time.Time { return day }))
	vm.Replace(append(twoRecords(), models.Record{}))
	vm.SetSearch("25")

	sink := &memorySink{}
	name, err := vm.Export(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, "polyhouse_data_2024-07-09.csv", name)
	assert.Equal(t, name, sink.name)
	want := "S.No,Temperature (°C),Timestamp\n" +
		"1,23.5,2024-01-01T10:00\n" +
		"2,25.1,2024-01-02T10:00\n" +
		"3,-,-\n"
	assert.Equal(t, want, string(sink.data))
}

func TestViewModel_ExportSinkError(t *testing.T) {
	vm := New(&fakeRenderer{})
	vm.Replace(twoRecords())

	boom := errors.New("disk full")
	_, err := vm.Export(context.Background(), &memorySink{err: boom})
	assert.ErrorIs(t, err, boom)
}
