package viewer

import (
	"fmt"

	"github.com/lox/polyhouse/internal/models"
)

// Renderer is implemented by the UI layer. The view model calls it after
// every recompute and when something needs the user's attention.
type Renderer interface {
	RenderRows(rows []Row)
	SetSummary(text string)
	SetNavigation(prevEnabled, nextEnabled bool)
	Notify(msg string)
}

// Row is one table row, ready for display.
type Row struct {
	Index       int // 1-based position in the filtered set
	Temperature string
	Timestamp   string
}

// View is everything a render pushes to the Renderer.
type View struct {
	Rows        []Row
	Summary     string
	PrevEnabled bool
	NextEnabled bool
}

func NewRow(index int, rec models.Record) Row {
	row := Row{Index: index, Temperature: Placeholder, Timestamp: Placeholder}
	if rec.WaterTemperature != nil {
		row.Temperature = FormatTemperature(*rec.WaterTemperature)
	}
	if rec.Timestamp != nil {
		row.Timestamp = *rec.Timestamp
	}
	return row
}

// BuildView derives the rows, summary and navigation state for a page.
func BuildView(res Result) View {
	rows := make([]Row, 0, len(res.Items))
	offset := res.Offset()
	for i, rec := range res.Items {
		rows = append(rows, NewRow(offset+i+1, rec))
	}
	return View{
		Rows:        rows,
		Summary:     Summary(res),
		PrevEnabled: res.Page > 1,
		NextEnabled: res.Page < res.TotalPages,
	}
}

func Summary(res Result) string {
	return fmt.Sprintf("Page %d of %d (%d records)", res.Page, res.DisplayPages(), res.TotalFiltered)
}

// Render pushes a view to r.
func Render(r Renderer, v View) {
	r.RenderRows(v.Rows)
	r.SetSummary(v.Summary)
	r.SetNavigation(v.PrevEnabled, v.NextEnabled)
}
