package source

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/detector"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
)

// fakeEstimator is a scripted native capability for adapter tests.
type fakeEstimator struct {
	mu       sync.Mutex
	probeErr error
	startErr error
	started  bool
	stopped  bool
	onResult func(result any, timestampMs int64)
}

func (f *fakeEstimator) Probe() error {
	return f.probeErr
}

func (f *fakeEstimator) Start(onResult func(result any, timestampMs int64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.onResult = onResult
	return nil
}

func (f *fakeEstimator) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

// Emit pushes one frame through the registered callback.
func (f *fakeEstimator) Emit(result any, ts int64) {
	f.mu.Lock()
	cb := f.onResult
	f.mu.Unlock()
	if cb != nil {
		cb(result, ts)
	}
}

func visibility(v float64) *float64 {
	return &v
}

func fullBody(vis float64) []pose.RawLandmark {
	landmarks := make([]pose.RawLandmark, pose.SourceModelPoints)
	for i := range landmarks {
		landmarks[i] = pose.RawLandmark{X: 0.5, Y: 0.5, Visibility: visibility(vis)}
	}
	return landmarks
}

func TestAdapter_SourceSelection(t *testing.T) {
	t.Run("no estimator falls back to simulation", func(t *testing.T) {
		a := New(Config{})
		if !a.Simulated() {
			t.Error("Simulated() = false without an estimator")
		}
	})

	t.Run("estimator present selects native", func(t *testing.T) {
		a := New(Config{Estimator: &fakeEstimator{}})
		if a.Simulated() {
			t.Error("Simulated() = true with a native estimator")
		}
	})

	t.Run("simulation override wins over estimator", func(t *testing.T) {
		a := New(Config{Estimator: &fakeEstimator{}, UseSimulation: true})
		if !a.Simulated() {
			t.Error("Simulated() = false despite UseSimulation")
		}
	})
}

func TestAdapter_SimulatedDelivery(t *testing.T) {
	mock := clock.NewMock()
	a := New(Config{SimulationFPS: 10, Clock: mock, TrackingPoint: pose.LeftHip})
	defer a.Destroy()

	var mu sync.Mutex
	var received []*pose.PoseData
	a.Detector().Subscribe(func(p *pose.PoseData) {
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := a.Detector().Status(); got != detector.StateReady {
		t.Fatalf("status = %s, want %s", got, detector.StateReady)
	}
	// Let the simulation goroutine register its ticker on the mock
	// clock before advancing it.
	time.Sleep(10 * time.Millisecond)

	// Three ticks at 100ms period.
	for i := 0; i < 3; i++ {
		mock.Add(100 * time.Millisecond)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, p := range received[:3] {
		if p == nil {
			t.Fatalf("pose %d is nil, want a simulated pose", i)
		}
		if len(p.Keypoints) != pose.NumKeypoints {
			t.Errorf("pose %d keypoints = %d, want %d", i, len(p.Keypoints), pose.NumKeypoints)
		}
	}
	for i := 1; i < 3; i++ {
		if received[i].Timestamp < received[i-1].Timestamp {
			t.Errorf("timestamps not ordered: %d then %d",
				received[i-1].Timestamp, received[i].Timestamp)
		}
	}
}

func TestAdapter_StartStopIdempotence(t *testing.T) {
	mock := clock.NewMock()
	a := New(Config{SimulationFPS: 10, Clock: mock})
	defer a.Destroy()

	var mu sync.Mutex
	count := 0
	a.Detector().Subscribe(func(p *pose.PoseData) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	mock.Add(100 * time.Millisecond)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})
	mu.Lock()
	if count != 1 {
		t.Errorf("deliveries per tick = %d, want 1 (double start must not double the stream)", count)
	}
	mu.Unlock()

	a.Stop()
	a.Stop() // stopping a stopped adapter is a no-op

	mu.Lock()
	before := count
	mu.Unlock()
	mock.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	if count != before {
		t.Errorf("received %d poses after Stop returned", count-before)
	}
	mu.Unlock()
}

func TestAdapter_NativeDelivery(t *testing.T) {
	est := &fakeEstimator{}
	a := New(Config{Estimator: est})
	defer a.Destroy()

	var got *pose.PoseData
	notified := 0
	a.Detector().Subscribe(func(p *pose.PoseData) {
		got = p
		notified++
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	t.Run("confident frame is broadcast", func(t *testing.T) {
		est.Emit(pose.SolutionResult{PoseLandmarks: fullBody(0.9)}, 50)
		if got == nil {
			t.Fatal("expected a broadcast pose")
		}
		if len(got.Keypoints) != pose.NumKeypoints {
			t.Errorf("keypoints = %d, want %d", len(got.Keypoints), pose.NumKeypoints)
		}
	})

	t.Run("empty result broadcasts nil", func(t *testing.T) {
		est.Emit(map[string]any{}, 60)
		if got != nil {
			t.Error("expected nil broadcast for an empty result")
		}
		if notified != 2 {
			t.Errorf("notifications = %d, want 2", notified)
		}
	})

	t.Run("few confident keypoints broadcast nil but normalize sees them", func(t *testing.T) {
		raw := fullBody(0.4)
		for _, idx := range []int{0, 2, 5} {
			raw[idx].Visibility = visibility(0.9)
		}
		est.Emit(pose.TaskResult{Landmarks: raw}, 70)

		if got != nil {
			t.Error("expected nil broadcast below the functional threshold")
		}
		stats := a.Detector().LastFrameStats()
		if stats.RawKeypoints != pose.NumKeypoints || stats.KeptKeypoints != 3 {
			t.Errorf("stats = %+v, want raw=%d kept=3", stats, pose.NumKeypoints)
		}
	})

	t.Run("frames after stop are dropped", func(t *testing.T) {
		a.Stop()
		if !est.stopped {
			t.Error("estimator was not stopped")
		}
		before := notified
		est.Emit(pose.SolutionResult{PoseLandmarks: fullBody(0.9)}, 80)
		if notified != before {
			t.Error("frame delivered after Stop returned")
		}
	})
}

func TestAdapter_NativeProbeFailures(t *testing.T) {
	t.Run("missing capability reaches not_available", func(t *testing.T) {
		est := &fakeEstimator{probeErr: detector.ErrPlatformUnsupported}
		a := New(Config{Estimator: est})

		err := a.Start()
		if !errors.Is(err, detector.ErrPlatformUnsupported) {
			t.Fatalf("Start() error = %v, want ErrPlatformUnsupported", err)
		}
		if got := a.Detector().Status(); got != detector.StateNotAvailable {
			t.Errorf("status = %s, want %s", got, detector.StateNotAvailable)
		}
	})

	t.Run("start fault reaches error and is retryable", func(t *testing.T) {
		est := &fakeEstimator{probeErr: &detector.InitError{Reason: "camera busy"}}
		a := New(Config{Estimator: est})

		if err := a.Start(); err == nil {
			t.Fatal("Start() error = nil, want init failure")
		}
		if got := a.Detector().Status(); got != detector.StateError {
			t.Fatalf("status = %s, want %s", got, detector.StateError)
		}

		est.probeErr = nil
		if err := a.Start(); err != nil {
			t.Fatalf("retry Start() error = %v", err)
		}
		a.Destroy()
	})
}

func TestAdapter_CameraReadySignal(t *testing.T) {
	ready := 0
	mock := clock.NewMock()
	a := New(Config{SimulationFPS: 10, Clock: mock, OnCameraReady: func() { ready++ }})
	defer a.Destroy()

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if ready != 1 {
		t.Errorf("camera-ready fired %d times, want 1", ready)
	}
}

// waitFor polls cond until it holds or the deadline passes. The simulated
// ticker fires on its own goroutine, so deliveries lag mock.Add slightly.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
