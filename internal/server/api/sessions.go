// Package api holds the JSON resource handlers of the pose pipeline
// server.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/store"
)

// SessionsHandler handles HTTP requests for capture-session records.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP routes between the collection and item endpoints.
// Expected paths: /api/sessions or /api/sessions/{id}.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, path)
}

// sessionResponse is the wire representation of a session record.
type sessionResponse struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	TrackingPoint string     `json:"trackingPoint"`
	LoadKg        float64    `json:"loadKg"`
	FatigueRate   float64    `json:"fatigueRate"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	AvgFPS        float64    `json:"avgFps"`
}

func toResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		Source:        string(s.Source),
		TrackingPoint: s.TrackingPoint,
		LoadKg:        s.LoadKg,
		FatigueRate:   s.FatigueRate,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		AvgFPS:        s.AvgFPS,
	}
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toResponse(s))
	}
	writeJSON(w, out)
}

func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toResponse(sess))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
