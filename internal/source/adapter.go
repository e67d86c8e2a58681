package source

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/detector"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/simulate"
)

// DefaultSimulationFPS is the tick rate of the simulated source (~33ms).
const DefaultSimulationFPS = 30

// Config is the caller-supplied construction surface for a capture source.
type Config struct {
	// ModelComplexity selects the native model variant (0=lite, 1=full,
	// 2=heavy). It is forwarded opaquely to the native estimator by the
	// wiring layer and has no effect on adapter logic.
	ModelComplexity int

	// MinDetectionConfidence is the keypoint score threshold applied
	// before broadcast. Zero means the detector default (0.6).
	MinDetectionConfidence float64

	// MinTrackingConfidence is forwarded opaquely to the native
	// estimator.
	MinTrackingConfidence float64

	// TrackingPoint is the keypoint the VBT analytics follow.
	TrackingPoint pose.KeypointName

	// LoadKg and FatigueRate shape the simulated repetition cycle.
	LoadKg      float64
	FatigueRate float64

	// SimulationFPS is the simulated tick rate. Zero means
	// DefaultSimulationFPS.
	SimulationFPS int

	// UseSimulation forces the simulated source even when a native
	// estimator is present.
	UseSimulation bool

	// Estimator is the native capability, or nil when the platform has
	// none.
	Estimator Estimator

	// Clock drives the simulation ticker and detector timing. Nil means
	// the real clock.
	Clock clock.Clock

	// OnCameraReady, if set, is invoked once per successful Start, after
	// the source is delivering frames.
	OnCameraReady func()
}

// Adapter owns one detector and drives it from the selected source. It is
// the only caller of the detector's Ingest.
type Adapter struct {
	cfg Config
	clk clock.Clock
	det *detector.Detector
	sim *simulate.Simulator // nil in native mode

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New selects the source and builds the adapter. The native estimator is
// used if and only if the platform exposes one and the caller did not
// request simulation; otherwise the simulator takes over transparently.
func New(cfg Config) *Adapter {
	if cfg.SimulationFPS <= 0 {
		cfg.SimulationFPS = DefaultSimulationFPS
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	a := &Adapter{cfg: cfg, clk: clk}

	var initFn detector.InitFunc
	if a.simulated() {
		a.sim = simulate.New(simulate.Config{
			TrackingPoint: cfg.TrackingPoint,
			LoadKg:        cfg.LoadKg,
			FatigueRate:   cfg.FatigueRate,
			Clock:         clk,
		})
	} else {
		initFn = cfg.Estimator.Probe
	}
	a.det = detector.New(detector.Config{
		MinConfidence: cfg.MinDetectionConfidence,
		Init:          initFn,
		Clock:         clk,
	})
	return a
}

// simulated reports whether this adapter drives the simulator.
func (a *Adapter) simulated() bool {
	return a.cfg.UseSimulation || a.cfg.Estimator == nil
}

// Simulated reports the active source kind.
func (a *Adapter) Simulated() bool {
	return a.simulated()
}

// Detector exposes the adapter's detector for subscriptions and status
// queries. Consumers must not call Ingest themselves.
func (a *Adapter) Detector() *detector.Detector {
	return a.det
}

// Start initializes the detector and begins frame delivery. Starting an
// already-started adapter is a no-op. Must not be called from a subscriber
// callback.
func (a *Adapter) Start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.det.Initialize(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	stop, done := a.stopCh, a.done
	a.mu.Unlock()

	if a.simulated() {
		a.sim.Reset() // cycles always begin at the eccentric phase
		go a.runSimulation(stop, done)
	} else {
		if err := a.cfg.Estimator.Start(a.forward); err != nil {
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			close(done)
			return &detector.InitError{Reason: "start native estimator", Err: err}
		}
		close(done) // native delivery is stopped via the estimator, not a loop
	}

	if a.cfg.OnCameraReady != nil {
		a.cfg.OnCameraReady()
	}
	return nil
}

// runSimulation ticks the simulator at the configured rate and forwards
// each pose through the same ingest path native frames use, so FPS
// accounting and fan-out are source-agnostic.
func (a *Adapter) runSimulation(stop, done chan struct{}) {
	defer close(done)

	period := time.Second / time.Duration(a.cfg.SimulationFPS)
	ticker := a.clk.Ticker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p := a.sim.NextPose()
			if _, err := a.det.Ingest(p, p.Timestamp); err != nil {
				return
			}
		}
	}
}

// forward feeds one native frame into the detector, dropping it if the
// adapter was stopped while the frame was in flight.
func (a *Adapter) forward(result any, timestampMs int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	if _, err := a.det.Ingest(result, timestampMs); err != nil {
		log.Printf("drop native frame: %v", err)
	}
}

// Stop halts frame delivery. No pose is delivered after Stop returns, even
// for frames already in flight. Stopping a stopped adapter is a no-op.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	stop, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	close(stop)
	<-done // wait out the simulation loop, if any

	if !a.simulated() {
		if err := a.cfg.Estimator.Stop(); err != nil {
			log.Printf("stop native estimator: %v", err)
		}
	}
}

// Destroy stops delivery and tears the detector down. The adapter must not
// be reused afterwards.
func (a *Adapter) Destroy() {
	a.Stop()
	a.det.Destroy()
}
