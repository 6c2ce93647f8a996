package viewer

import (
	"strconv"
	"strings"

	"github.com/lox/polyhouse/internal/models"
)

// Placeholder is shown in place of a missing field.
const Placeholder = "-"

// Result is one page of the filtered record set.
type Result struct {
	Items         []models.Record
	Page          int // clamped, 1-based
	PageSize      int
	TotalPages    int // ceil(TotalFiltered / PageSize), 0 when nothing matched
	TotalFiltered int
}

// Offset is the index in the filtered set of the first item on the page.
func (r Result) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// DisplayPages is TotalPages with a floor of 1, for summaries.
func (r Result) DisplayPages() int {
	return max(1, r.TotalPages)
}

// NormalizeSearch trims and lower-cases a search term.
func NormalizeSearch(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// FormatTemperature renders a temperature the way it is displayed and
// matched: the shortest decimal that round-trips, never an exponent.
func FormatTemperature(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Matches reports whether a record matches an already normalized term. A
// missing field never matches; an empty term always does.
func Matches(rec models.Record, term string) bool {
	if term == "" {
		return true
	}
	if rec.WaterTemperature != nil &&
		strings.Contains(strings.ToLower(FormatTemperature(*rec.WaterTemperature)), term) {
		return true
	}
	if rec.Timestamp != nil && strings.Contains(strings.ToLower(*rec.Timestamp), term) {
		return true
	}
	return false
}

// Filter returns the records matching term, in input order. The term is
// normalized first.
func Filter(records []models.Record, term string) []models.Record {
	term = NormalizeSearch(term)
	if term == "" {
		return records
	}
	var out []models.Record
	for _, rec := range records {
		if Matches(rec, term) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterAndPaginate filters records by term and returns the requested page,
// clamped into [1, max(1, totalPages)]. A pageSize below 1 is treated as 1.
// It does not modify records.
func FilterAndPaginate(records []models.Record, term string, page, pageSize int) Result {
	if pageSize < 1 {
		pageSize = 1
	}
	filtered := Filter(records, term)

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	page = min(max(page, 1), max(1, totalPages))

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	var items []models.Record
	if start < end {
		items = filtered[start:end:end]
	}

	return Result{
		Items:         items,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
		TotalFiltered: total,
	}
}
