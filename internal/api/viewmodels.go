package api

import (
	"time"

	"github.com/lox/polyhouse/internal/models"
	"github.com/lox/polyhouse/internal/viewer"
)

// tableView collects what the view model renders so a template can print
// it. It implements viewer.Renderer.
type tableView struct {
	Rows        []viewer.Row
	Summary     string
	PrevEnabled bool
	NextEnabled bool
	Notices     []string
}

func (t *tableView) RenderRows(rows []viewer.Row) { t.Rows = rows }
func (t *tableView) SetSummary(text string)       { t.Summary = text }
func (t *tableView) Notify(msg string)            { t.Notices = append(t.Notices, msg) }

func (t *tableView) SetNavigation(prev, next bool) {
	t.PrevEnabled = prev
	t.NextEnabled = next
}

// IndexData is everything the dashboard template needs.
type IndexData struct {
	*tableView
	Page      int
	PageSize  int
	PageSizes []int
	Search    string
	Total     int // unfiltered record count
}

// ViewData backs the secondary page with the latest reading and relay
// states.
type ViewData struct {
	Latest      *models.Record
	Relays      []RelayRow
	Total       int
	GeneratedAt time.Time
}

type RelayRow struct {
	Device    string
	State     string
	UpdatedAt string
}
