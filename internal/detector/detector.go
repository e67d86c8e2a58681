// Package detector owns the pose-detection lifecycle: a state machine over
// the capture session, the last-known pose, live FPS accounting and the
// subscriber registry that fans normalized poses out to consumers.
package detector

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
)

// State is the detector lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateError         State = "error"
	StateNotAvailable  State = "not_available"
)

// DefaultMinConfidence is applied to keypoints before broadcast when the
// caller does not configure a threshold.
const DefaultMinConfidence = 0.6

// DefaultMinKeypoints is the functional floor on confident keypoints: a
// frame keeping fewer than this many is broadcast as nil, since a handful
// of stray joints is not a usable pose.
const DefaultMinKeypoints = 4

// fpsWindow is the sliding sample window for throughput accounting.
const fpsWindow = time.Second

// Subscriber receives every broadcast pose. A nil pose means the frame
// produced no landmarks, or none above the confidence threshold; the two
// cases are not distinguished at this boundary.
type Subscriber func(p *pose.PoseData)

// InitFunc probes and starts the underlying capability. A nil InitFunc
// means the capability needs no startup work. Returning
// ErrPlatformUnsupported (possibly wrapped) marks the platform as having no
// capability at all; any other error is a recoverable startup fault.
type InitFunc func() error

// Config holds construction options for a Detector.
type Config struct {
	// MinConfidence is the keypoint score threshold applied before
	// broadcast. Zero means DefaultMinConfidence.
	MinConfidence float64

	// MinKeypoints is the functional floor on confident keypoints per
	// frame. Zero means DefaultMinKeypoints.
	MinKeypoints int

	// Init probes/starts the capability during Initialize. May be nil.
	Init InitFunc

	// Clock drives FPS windowing and frame stamping. Nil means the real
	// clock; tests substitute a mock.
	Clock clock.Clock
}

// FrameStats describes the last ingested frame: how many keypoints the
// normalizer produced and how many survived the confidence filter. It lets
// a caller tell "nothing detected" from "detected but unreliable" without
// widening the subscriber contract.
type FrameStats struct {
	RawKeypoints  int
	KeptKeypoints int
}

type subscription struct {
	fn Subscriber
}

// Detector is the pose-detection state machine. All mutable state is
// guarded by an internal mutex, so a driver delivering frames from another
// goroutine and a consumer calling accessors do not race.
type Detector struct {
	mu            sync.Mutex
	state         State
	lastErr       error
	lastPose      *pose.PoseData
	subs          []*subscription
	minConfidence float64
	minKeypoints  int
	initFn        InitFunc

	clk         clock.Clock
	epoch       time.Time
	frameCount  int
	currentFPS  int
	windowStart time.Time
	lastStamp   int64
	lastFrame   FrameStats
}

// New creates a Detector in StateUninitialized.
func New(cfg Config) *Detector {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	min := cfg.MinConfidence
	if min <= 0 {
		min = DefaultMinConfidence
	}
	minKeypoints := cfg.MinKeypoints
	if minKeypoints <= 0 {
		minKeypoints = DefaultMinKeypoints
	}
	now := clk.Now()
	return &Detector{
		state:         StateUninitialized,
		minConfidence: min,
		minKeypoints:  minKeypoints,
		initFn:        cfg.Init,
		clk:           clk,
		epoch:         now,
		windowStart:   now,
	}
}

// Initialize transitions the detector to StateReady, running the capability
// init function if one was configured. Calling Initialize while already
// ready is a no-op returning nil. A wrapped ErrPlatformUnsupported moves
// the detector to StateNotAvailable, terminal until a new instance is
// created; any other init error moves it to StateError, recoverable by
// calling Initialize again.
func (d *Detector) Initialize() error {
	d.mu.Lock()
	switch d.state {
	case StateReady, StateLoading:
		d.mu.Unlock()
		return nil
	case StateNotAvailable:
		d.mu.Unlock()
		return ErrPlatformUnsupported
	}
	d.state = StateLoading
	d.lastErr = nil
	initFn := d.initFn
	d.mu.Unlock()

	var err error
	if initFn != nil {
		err = initFn()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrPlatformUnsupported) {
			d.state = StateNotAvailable
		} else {
			d.state = StateError
		}
		d.lastErr = err
		return err
	}
	d.state = StateReady
	d.windowStart = d.clk.Now()
	d.frameCount = 0
	return nil
}

// Ingest feeds one raw estimator result through unwrapping, normalization
// and confidence filtering, then broadcasts the outcome to every subscriber
// in registration order. timestampMs stamps the frame; values <= 0 mean
// "stamp from the detector clock". Timestamps are clamped non-decreasing
// for the lifetime of the instance.
//
// The broadcast (and returned) pose is nil when the frame produced no
// landmarks, or fewer confident keypoints than the functional floor.
// Ingest is only valid in StateReady and returns ErrNotReady otherwise.
func (d *Detector) Ingest(result any, timestampMs int64) (*pose.PoseData, error) {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return nil, ErrNotReady
	}

	now := d.clk.Now()
	d.sampleFPSLocked(now)
	d.frameCount++

	ts := timestampMs
	if ts <= 0 {
		ts = now.Sub(d.epoch).Milliseconds()
	}
	if ts < d.lastStamp {
		ts = d.lastStamp
	}
	d.lastStamp = ts

	var broadcast *pose.PoseData
	if normalized, ok := d.normalize(result, ts); ok {
		filtered := pose.FilterByConfidence(normalized, d.minConfidence)
		d.lastFrame = FrameStats{
			RawKeypoints:  len(normalized.Keypoints),
			KeptKeypoints: len(filtered.Keypoints),
		}
		if len(filtered.Keypoints) >= d.minKeypoints {
			broadcast = &filtered
			d.lastPose = broadcast
		}
	} else {
		d.lastFrame = FrameStats{}
	}

	subs := make([]*subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, s := range subs {
		notify(s.fn, broadcast)
	}
	return broadcast, nil
}

// normalize unwraps the result envelope and converts to the canonical
// schema. Already-normalized poses (the simulator path) pass through so FPS
// accounting and fan-out stay source-agnostic.
func (d *Detector) normalize(result any, ts int64) (pose.PoseData, bool) {
	if p, ok := result.(pose.PoseData); ok {
		p.Timestamp = ts
		return p, true
	}
	raw, ok := pose.ExtractLandmarks(result)
	if !ok {
		return pose.PoseData{}, false
	}
	return pose.Normalize(raw, ts), true
}

// notify invokes one subscriber, capturing panics so a faulty callback
// cannot abort delivery to the rest or corrupt detector state.
func notify(fn Subscriber, p *pose.PoseData) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pose subscriber panicked: %v", r)
		}
	}()
	fn(p)
}

// sampleFPSLocked snapshots the frame counter into the current FPS reading
// once the 1-second window has elapsed. Caller holds d.mu.
func (d *Detector) sampleFPSLocked(now time.Time) {
	if now.Sub(d.windowStart) >= fpsWindow {
		d.currentFPS = d.frameCount
		d.frameCount = 0
		d.windowStart = now
	}
}

// Subscribe registers a callback for every broadcast pose. The returned
// handle deregisters exactly once; repeat calls are no-ops.
func (d *Detector) Subscribe(fn Subscriber) (unsubscribe func()) {
	s := &subscription{fn: fn}
	d.mu.Lock()
	d.subs = append(d.subs, s)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, cur := range d.subs {
				if cur == s {
					d.subs = append(d.subs[:i], d.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Status returns the current lifecycle state.
func (d *Detector) Status() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err returns the error recorded by the last failed Initialize, or nil.
func (d *Detector) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// FPS returns the most recent 1-second throughput sample.
func (d *Detector) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleFPSLocked(d.clk.Now())
	return d.currentFPS
}

// LastPose returns the last broadcast non-nil pose, or nil if none yet.
func (d *Detector) LastPose() *pose.PoseData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPose
}

// LastFrameStats returns raw/kept keypoint counts for the last frame.
func (d *Detector) LastFrameStats() FrameStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastFrame
}

// Reset forgets recent data: last pose and FPS counters. The lifecycle
// state is unchanged; a ready detector stays ready. The monotonic timestamp
// floor is kept so consumers never observe time going backwards.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastPose = nil
	d.lastFrame = FrameStats{}
	d.frameCount = 0
	d.currentFPS = 0
	d.windowStart = d.clk.Now()
}

// Destroy clears all subscribers and returns the detector to
// StateUninitialized. The instance must not be reused afterwards; create a
// fresh one and Initialize it instead.
func (d *Detector) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = nil
	d.lastPose = nil
	d.lastFrame = FrameStats{}
	d.frameCount = 0
	d.currentFPS = 0
	d.lastErr = nil
	d.state = StateUninitialized
}
