package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lox/polyhouse/internal/ingest"
	"github.com/lox/polyhouse/internal/models"
)

const maxBodyBytes = 64 << 10

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Polyhouse Temperature Monitoring API is running"})
}

func (s *Server) handleAPIPostData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data"})
		return
	}

	if _, err := s.ingestor.RecordRaw(r.Context(), ingest.SourceHTTP, raw); err != nil {
		if errors.Is(err, ingest.ErrInvalidPayload) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Temperature saved successfully!"})
}

func (s *Server) handleAPIGetData(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Records(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPILatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if latest == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"temperature": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, latest.Record())
}

type relayResponse struct {
	Device    string `json:"device"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s *Server) handleAPISetRelay(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]

	var cmd ingest.RelayCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid state"})
		return
	}

	rs, err := s.ingestor.SetRelay(r.Context(), device, cmd)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidState) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid state"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%s turned %s", device, rs.State)})
}

func (s *Server) handleAPIGetRelay(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]

	rs, err := s.store.GetRelayState(r.Context(), device)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rs == nil {
		s.writeJSON(w, http.StatusOK, relayResponse{Device: device, State: models.RelayOff})
		return
	}
	s.writeJSON(w, http.StatusOK, relayResponse{
		Device:    device,
		State:     rs.State,
		Timestamp: rs.UpdatedAt.UTC().Format(models.TimestampLayout),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "error", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": version})
}
