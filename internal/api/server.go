package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lox/polyhouse/internal/ingest"
	"github.com/lox/polyhouse/internal/store"
	"github.com/lox/polyhouse/internal/viewer"
)

type Server struct {
	store     *store.Store
	ingestor  *ingest.Ingestor
	addr      string
	log       zerolog.Logger
	tmpl      *template.Template
	pageSizes []int
	now       func() time.Time
}

func NewServer(st *store.Store, ing *ingest.Ingestor, addr string, log zerolog.Logger) *Server {
	return &Server{
		store:     st,
		ingestor:  ing,
		addr:      addr,
		log:       log.With().Str("component", "api").Logger(),
		tmpl:      newTemplates(),
		pageSizes: viewer.DefaultPageSizes,
		now:       time.Now,
	}
}

// SetPageSizes overrides the page sizes offered on the dashboard.
func (s *Server) SetPageSizes(sizes []int) {
	if len(sizes) > 0 {
		s.pageSizes = sizes
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/viewdata", s.handleViewData).Methods(http.MethodGet)
	r.HandleFunc("/export.csv", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/sensors").Subrouter()
	api.HandleFunc("", s.handleAPIRoot).Methods(http.MethodGet)
	api.HandleFunc("/data", s.handleAPIPostData).Methods(http.MethodPost)
	api.HandleFunc("/data", s.handleAPIGetData).Methods(http.MethodGet)
	api.HandleFunc("/latest", s.handleAPILatest).Methods(http.MethodGet)
	api.HandleFunc("/control/{device}", s.handleAPISetRelay).Methods(http.MethodPost)
	api.HandleFunc("/control/{device}", s.handleAPIGetRelay).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with CORS and an access log.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	access := s.log.With().Str("component", "http").Logger()
	return handlers.LoggingHandler(access, cors(s.Router()))
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("starting server")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
