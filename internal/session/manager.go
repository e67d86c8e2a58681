// Package session owns capture sessions: an explicit context object that
// callers construct, hold and tear down, replacing any global detector
// state. Each manager drives one source adapter and records its sessions.
package session

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/detector"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/source"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/store"
)

// Config holds construction options for a Manager.
type Config struct {
	// Store persists session records. Nil disables persistence.
	Store *store.Store

	// Source configures the capture source feeding the detector.
	Source source.Config
}

// Status is a point-in-time snapshot of the pipeline, the query surface
// exposed to UI and analytics.
type Status struct {
	SessionID string         `json:"sessionId,omitempty"`
	Running   bool           `json:"running"`
	Simulated bool           `json:"simulated"`
	State     detector.State `json:"state"`
	Error     string         `json:"error,omitempty"`
	FPS       int            `json:"fps"`
	LastPose  *pose.PoseData `json:"lastPose,omitempty"`
}

// Manager orchestrates one capture source and its session records.
type Manager struct {
	cfg     Config
	adapter *source.Adapter

	mu        sync.Mutex
	sessionID string
	startedAt time.Time
	frames    atomic.Int64
	unsub     func()
}

// NewManager builds the source adapter and its detector. Nothing starts
// until Start is called.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		adapter: source.New(cfg.Source),
	}
}

// Detector exposes the underlying detector for subscriptions and status
// queries.
func (m *Manager) Detector() *detector.Detector {
	return m.adapter.Detector()
}

// Start begins a capture session. Starting while a session is running is a
// no-op.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionID != "" {
		return nil
	}
	if err := m.adapter.Start(); err != nil {
		return err
	}

	m.sessionID = uuid.NewString()
	m.startedAt = time.Now()
	m.frames.Store(0)
	m.unsub = m.adapter.Detector().Subscribe(func(p *pose.PoseData) {
		if p != nil {
			m.frames.Add(1)
		}
	})

	if m.cfg.Store != nil {
		sess := &store.Session{
			ID:            m.sessionID,
			Source:        m.sourceKind(),
			TrackingPoint: string(m.cfg.Source.TrackingPoint),
			LoadKg:        m.cfg.Source.LoadKg,
			FatigueRate:   m.cfg.Source.FatigueRate,
			StartedAt:     m.startedAt,
		}
		if err := m.cfg.Store.Sessions().Create(sess); err != nil {
			log.Printf("record session start: %v", err)
		}
	}

	log.Printf("capture session %s started (%s source)", m.sessionID, m.sourceKind())
	return nil
}

// Stop ends the running session, halting frame delivery and recording the
// session summary. Stopping without a running session is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionID == "" {
		return
	}

	m.adapter.Stop()
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}

	ended := time.Now()
	elapsed := ended.Sub(m.startedAt).Seconds()
	avgFPS := 0.0
	if elapsed > 0 {
		avgFPS = float64(m.frames.Load()) / elapsed
	}

	if m.cfg.Store != nil {
		if err := m.cfg.Store.Sessions().Finish(m.sessionID, ended, avgFPS); err != nil {
			log.Printf("record session end: %v", err)
		}
	}

	log.Printf("capture session %s stopped (avg %.1f fps)", m.sessionID, avgFPS)
	m.sessionID = ""
}

// Running reports whether a session is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID != ""
}

// Status returns the current pipeline snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()

	det := m.adapter.Detector()
	st := Status{
		SessionID: sessionID,
		Running:   sessionID != "",
		Simulated: m.adapter.Simulated(),
		State:     det.Status(),
		FPS:       det.FPS(),
		LastPose:  det.LastPose(),
	}
	if err := det.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// Close stops any running session and destroys the adapter. The manager
// must not be reused afterwards.
func (m *Manager) Close() {
	m.Stop()
	m.adapter.Destroy()
}

func (m *Manager) sourceKind() store.SourceKind {
	if m.adapter.Simulated() {
		return store.SourceSimulated
	}
	return store.SourceNative
}
