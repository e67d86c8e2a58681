package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/session"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/source"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/store"
)

func newTestServer(t *testing.T) (*Server, *session.Manager, *store.Store) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mgr := session.NewManager(session.Config{
		Store: st,
		Source: source.Config{
			UseSimulation: true,
			TrackingPoint: pose.LeftWrist,
			SimulationFPS: 30,
		},
	})
	t.Cleanup(mgr.Close)

	return New(Config{Store: st, Manager: mgr}), mgr, st
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var status session.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Running {
		t.Error("Running = true before capture start")
	}
	if !status.Simulated {
		t.Error("Simulated = false, want true")
	}
}

func TestCaptureLifecycle(t *testing.T) {
	srv, mgr, st := newTestServer(t)

	post := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	rec := post("/api/capture/start")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, want %d", rec.Code, http.StatusOK)
	}

	var status session.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if !status.Running {
		t.Error("Running = false after start")
	}
	if status.SessionID == "" {
		t.Error("SessionID empty after start")
	}
	if !mgr.Running() {
		t.Error("manager not running after start")
	}

	rec = post("/api/capture/stop")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want %d", rec.Code, http.StatusOK)
	}
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode stop response: %v", err)
	}
	if status.Running {
		t.Error("Running = true after stop")
	}

	sessions, err := st.Sessions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	if sessions[0].EndedAt == nil {
		t.Error("session not finished after stop")
	}
}

func TestCaptureRequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/api/capture/start", "/api/capture/stop"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestSessionsEndpoint(t *testing.T) {
	srv, _, st := newTestServer(t)

	ended := time.Now()
	sess := &store.Session{
		ID:            "abc-123",
		Source:        store.SourceSimulated,
		TrackingPoint: string(pose.LeftWrist),
		LoadKg:        60,
		FatigueRate:   0.05,
		StartedAt:     ended.Add(-time.Minute),
	}
	if err := st.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := st.Sessions().Finish(sess.ID, ended, 28.5); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var list []map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("len(list) = %d, want 1", len(list))
		}
		if list[0]["id"] != "abc-123" {
			t.Errorf("id = %v, want abc-123", list[0]["id"])
		}
	})

	t.Run("get by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc-123", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var got map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got["trackingPoint"] != string(pose.LeftWrist) {
			t.Errorf("trackingPoint = %v, want %s", got["trackingPoint"], pose.LeftWrist)
		}
		if got["avgFps"] != 28.5 {
			t.Errorf("avgFps = %v, want 28.5", got["avgFps"])
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}
