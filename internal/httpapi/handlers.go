package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/pkg/models"
)

// frameResponse is core.Frame with its error fields rendered as text.
type frameResponse struct {
	core.Frame
	Error   string   `json:"error,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

func newFrameResponse(f core.Frame) frameResponse {
	resp := frameResponse{Frame: f}
	if f.Err != nil {
		resp.Error = f.Err.Error()
	}
	for _, s := range f.Skipped {
		resp.Skipped = append(resp.Skipped, s.Error())
	}
	return resp
}

type summaryResponse struct {
	HasData      bool               `json:"has_data"`
	Latest       models.Observation `json:"latest"`
	MaxCount     int                `json:"max_count"`
	Total        int                `json:"total"`
	Observations int                `json:"observations"`
	Tier         core.Tier          `json:"tier,omitempty"`
	SessionMax   int                `json:"session_max"`
	Message      string             `json:"message"`
	Stale        bool               `json:"stale"`
}

type alertResponse struct {
	Alert   core.AlertState `json:"alert"`
	Message string          `json:"message"`
	Changed bool            `json:"changed"`
	Stale   bool            `json:"stale"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, polled := s.Frame()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime_s": int(time.Since(s.start).Seconds()),
		"polled":   polled,
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f, ok := s.cachedFrame(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(f))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.cachedFrame(w)
	if !ok {
		return
	}
	resp := summaryResponse{
		HasData:    f.HasData,
		SessionMax: f.SessionMax,
		Message:    f.Message,
		Stale:      f.Stale,
	}
	if f.HasData {
		resp.Latest = f.Summary.Latest
		resp.MaxCount = f.Summary.MaxCount
		resp.Total = f.Summary.Total
		resp.Observations = f.Summary.Observations
		resp.Tier = f.Summary.Tier
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	f, ok := s.cachedFrame(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, alertResponse{Alert: f.Alert, Message: f.Message, Changed: f.Changed, Stale: f.Stale})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minCount, err := intParam(q.Get("min"), 1)
	if err != nil || minCount < 0 {
		writeError(w, http.StatusBadRequest, "bad 'min' (non-negative integer)")
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "bad 'limit' (non-negative integer)")
		return
	}

	f, ok := s.cachedFrame(w)
	if !ok {
		return
	}
	rows := core.FilterMinCount(f.Series, minCount, limit)
	if rows == nil {
		rows = []models.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": rows,
		"stale":        f.Stale,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newFrameResponse(s.Refresh(r.Context())))
}

// cachedFrame writes 503 and returns false until the first poll completes.
func (s *Server) cachedFrame(w http.ResponseWriter) (core.Frame, bool) {
	f, polled := s.Frame()
	if !polled {
		writeError(w, http.StatusServiceUnavailable, "first poll not complete")
		return core.Frame{}, false
	}
	return f, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
