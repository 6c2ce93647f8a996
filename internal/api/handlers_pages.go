package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lox/polyhouse/internal/export"
	"github.com/lox/polyhouse/internal/models"
	"github.com/lox/polyhouse/internal/viewer"
)

// newViewModel builds a view model for one request, loaded from the store.
// A failed load leaves the view empty with a notice.
func (s *Server) newViewModel(r *http.Request, t *tableView) *viewer.ViewModel {
	vm := viewer.New(t,
		viewer.WithPageSizes(s.pageSizes...),
		viewer.WithLogger(s.log),
		viewer.WithClock(s.now),
	)
	if err := vm.Load(r.Context(), viewer.SourceFunc(s.store.Records)); err != nil {
		vm.Refresh()
	}
	return vm
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	t := &tableView{}
	vm := s.newViewModel(r, t)

	q := r.URL.Query()
	if size, err := strconv.Atoi(q.Get("size")); err == nil {
		// unknown sizes keep the default
		vm.SetPageSize(size)
	}
	if term := q.Get("q"); term != "" {
		vm.SetSearch(term)
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		vm.SetPage(page)
	}

	data := IndexData{
		tableView: t,
		Page:      vm.Page(),
		PageSize:  vm.PageSize(),
		PageSizes: vm.PageSizes(),
		Search:    vm.Search(),
		Total:     len(vm.Records()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error().Err(err).Msg("template error")
	}
}

func (s *Server) handleViewData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := s.store.LatestReading(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	relays, err := s.store.ListRelayStates(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.store.CountReadings(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := ViewData{Total: total, GeneratedAt: s.now()}
	if latest != nil {
		rec := latest.Record()
		data.Latest = &rec
	}
	for _, rs := range relays {
		data.Relays = append(data.Relays, RelayRow{
			Device:    rs.Device,
			State:     rs.State,
			UpdatedAt: rs.UpdatedAt.UTC().Format(models.TimestampLayout),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "viewdata.html", data); err != nil {
		s.log.Error().Err(err).Msg("template error")
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	t := &tableView{}
	vm := s.newViewModel(r, t)
	if len(t.Notices) > 0 {
		http.Error(w, t.Notices[0], http.StatusServiceUnavailable)
		return
	}

	_, err := vm.Export(r.Context(), export.ResponseSink{W: w})
	if errors.Is(err, export.ErrNoData) {
		http.Error(w, viewer.NoticeNoData, http.StatusNotFound)
		return
	}
	if err != nil {
		// headers may already be out; nothing more to send
		s.log.Error().Err(err).Msg("export download")
	}
}
