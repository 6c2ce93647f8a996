package viewer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/polyhouse/internal/models"
)

func ptr[T any](v T) *T { return &v }

func rec(temp float64, ts string) models.Record {
	return models.Record{WaterTemperature: ptr(temp), Timestamp: ptr(ts)}
}

func twoRecords() []models.Record {
	return []models.Record{
		rec(23.5, "2024-01-01T10:00"),
		rec(25.1, "2024-01-02T10:00"),
	}
}

func TestFilterAndPaginate_FirstPage(t *testing.T) {
	res := FilterAndPaginate(twoRecords(), "", 1, 1)

	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 2, res.TotalFiltered)
	require.Len(t, res.Items, 1)

	v := BuildView(res)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, Row{Index: 1, Temperature: "23.5", Timestamp: "2024-01-01T10:00"}, v.Rows[0])
	assert.False(t, v.PrevEnabled)
	assert.True(t, v.NextEnabled)
	assert.Equal(t, "Page 1 of 2 (2 records)", v.Summary)
}

func TestFilterAndPaginate_SearchClampsPage(t *testing.T) {
	for _, page := range []int{-3, 0, 1, 2, 7} {
		t.Run(fmt.Sprintf("page=%d", page), func(t *testing.T) {
			res := FilterAndPaginate(twoRecords(), "25", page, 1)
			assert.Equal(t, 1, res.TotalFiltered)
			assert.Equal(t, 1, res.TotalPages)
			assert.Equal(t, 1, res.Page)
			require.Len(t, res.Items, 1)
			assert.Equal(t, 25.1, *res.Items[0].WaterTemperature)
		})
	}
}

func TestFilterAndPaginate_RowIndexFromOffset(t *testing.T) {
	var records []models.Record
	for i := 0; i < 7; i++ {
		records = append(records, rec(float64(20+i), fmt.Sprintf("2024-02-0%d 09:00:00", i+1)))
	}

	res := FilterAndPaginate(records, "", 3, 3)
	v := BuildView(res)

	require.Len(t, v.Rows, 1)
	assert.Equal(t, 7, v.Rows[0].Index)
	assert.Equal(t, "26", v.Rows[0].Temperature)
	assert.True(t, v.PrevEnabled)
	assert.False(t, v.NextEnabled)
}

func TestFilterAndPaginate_Empty(t *testing.T) {
	res := FilterAndPaginate(nil, "", 4, 10)

	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 0, res.TotalPages)
	assert.Equal(t, 1, res.DisplayPages())
	assert.Empty(t, res.Items)

	v := BuildView(res)
	assert.Equal(t, "Page 1 of 1 (0 records)", v.Summary)
	assert.False(t, v.PrevEnabled)
	assert.False(t, v.NextEnabled)
}

func TestFilterAndPaginate_NonPositivePageSize(t *testing.T) {
	res := FilterAndPaginate(twoRecords(), "", 2, 0)
	assert.Equal(t, 1, res.PageSize)
	assert.Equal(t, 2, res.Page)
	require.Len(t, res.Items, 1)
}

func TestMatches(t *testing.T) {
	nulls := models.Record{}
	tempOnly := models.Record{WaterTemperature: ptr(19.75)}
	tsOnly := models.Record{Timestamp: ptr("2024-03-05 Noon")}

	tests := []struct {
		name string
		rec  models.Record
		term string
		want bool
	}{
		{"empty term matches nulls", nulls, "", true},
		{"nulls never match non-empty term", nulls, "-", false},
		{"nulls never match digits", nulls, "1", false},
		{"temperature substring", tempOnly, "9.7", true},
		{"temperature miss", tempOnly, "20", false},
		{"timestamp lower-cased", tsOnly, "noon", true},
		{"timestamp miss", tsOnly, "2023", false},
		{"missing timestamp side is false", tempOnly, "2024", false},
		{"missing temperature side is false", tsOnly, "19", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.rec, tt.term))
		})
	}
}

func TestFilter_NormalizesTerm(t *testing.T) {
	records := []models.Record{rec(21, "2024-06-01 Morning"), rec(22, "2024-06-02 Evening")}

	got := Filter(records, "  MORNING ")
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-01 Morning", *got[0].Timestamp)
}

func TestFilter_EmptyTermIsIdentity(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(1)), 40)
	assert.Equal(t, records, Filter(records, ""))
	assert.Equal(t, records, Filter(records, "   "))
}

func TestFormatTemperature(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{23.5, "23.5"},
		{25, "25"},
		{-0.25, "-0.25"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e21, "1000000000000000000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTemperature(tt.in))
	}
}

func TestFilterAndPaginate_PagesCoverFilteredSet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	terms := []string{"", "2", "1.", "2024-01", "zzz", "5"}

	for iter := 0; iter < 200; iter++ {
		records := randomRecords(rng, rng.Intn(60))
		size := 1 + rng.Intn(12)
		term := terms[rng.Intn(len(terms))]

		first := FilterAndPaginate(records, term, 1, size)
		wantPages := (first.TotalFiltered + size - 1) / size
		require.Equal(t, wantPages, first.TotalPages)

		sum := 0
		for p := 1; p <= first.TotalPages; p++ {
			res := FilterAndPaginate(records, term, p, size)
			require.Equal(t, p, res.Page)
			sum += len(res.Items)
		}
		assert.Equal(t, first.TotalFiltered, sum)
		assert.Equal(t, len(Filter(records, term)), first.TotalFiltered)
	}
}

func randomRecords(rng *rand.Rand, n int) []models.Record {
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		var r models.Record
		if rng.Intn(5) != 0 {
			r.WaterTemperature = ptr(float64(rng.Intn(400)) / 10)
		}
		if rng.Intn(5) != 0 {
			r.Timestamp = ptr(fmt.Sprintf("2024-0%d-%02d %02d:00:00", 1+rng.Intn(9), 1+rng.Intn(28), rng.Intn(24)))
		}
		records = append(records, r)
	}
	return records
}
