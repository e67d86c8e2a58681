// Package simulate generates synthetic barbell-repetition poses for use
// when no hardware pose estimator is available. The output shape is
// identical to a normalized estimator pose, so downstream consumers cannot
// tell the sources apart.
package simulate

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
)

// Repetition cycle geometry. One cycle runs eccentric, bottom pause,
// concentric, top pause; the base vertical position travels between
// topPosition and bottomPosition.
const (
	DefaultCycleDuration = 2500 * time.Millisecond

	topPosition    = 0.35
	bottomPosition = 0.65

	eccentricEnd   = 0.4
	bottomPauseEnd = 0.5
	concentricEnd  = 0.85

	// maxDriftPosition caps the fatigue-scaled base position so drift
	// across many reps cannot run away.
	maxDriftPosition = 0.7

	// trackingScoreFloor is the minimum confidence reported for the
	// designated tracking point.
	trackingScoreFloor = 0.9

	// noiseAmplitude is the per-coordinate jitter range (uniform, +/-).
	noiseAmplitude = 0.01

	// loadSlowdownPerKg lengthens the cycle under heavier loads.
	loadSlowdownPerKg = 4 * time.Millisecond
)

// Noise supplies per-coordinate jitter. Substituting a seeded or silent
// source makes the pose sequence reproducible for tests.
type Noise interface {
	// Jitter returns a displacement in [-noiseAmplitude, noiseAmplitude].
	Jitter() float64
}

type randNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (n *randNoise) Jitter() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return (n.rng.Float64()*2 - 1) * noiseAmplitude
}

// NewSeededNoise returns a reproducible jitter source.
func NewSeededNoise(seed int64) Noise {
	return &randNoise{rng: rand.New(rand.NewSource(seed))}
}

// NoNoise disables jitter entirely.
type NoNoise struct{}

func (NoNoise) Jitter() float64 { return 0 }

// bodyPoint places one keypoint relative to the moving base position.
// dx is a horizontal offset from body center, dy a vertical offset from the
// base (hip height); score is the region-plausible fixed confidence.
type bodyPoint struct {
	name  pose.KeypointName
	dx    float64
	dy    float64
	score float64
}

// bodyLayout synthesizes a full 17-point configuration from a single base
// vertical position. Shoulders sit wider than hips; wrists hang below
// elbows below shoulders, as they do holding a bar.
var bodyLayout = []bodyPoint{
	{pose.Nose, 0.00, -0.42, 0.82},
	{pose.LeftEye, 0.02, -0.44, 0.80},
	{pose.RightEye, -0.02, -0.44, 0.80},
	{pose.LeftEar, 0.04, -0.43, 0.80},
	{pose.RightEar, -0.04, -0.43, 0.80},
	{pose.LeftShoulder, 0.12, -0.30, 0.92},
	{pose.RightShoulder, -0.12, -0.30, 0.92},
	{pose.LeftElbow, 0.16, -0.16, 0.88},
	{pose.RightElbow, -0.16, -0.16, 0.88},
	{pose.LeftWrist, 0.18, -0.04, 0.90},
	{pose.RightWrist, -0.18, -0.04, 0.90},
	{pose.LeftHip, 0.08, 0.00, 0.95},
	{pose.RightHip, -0.08, 0.00, 0.95},
	{pose.LeftKnee, 0.09, 0.18, 0.87},
	{pose.RightKnee, -0.09, 0.18, 0.87},
	{pose.LeftAnkle, 0.10, 0.34, 0.85},
	{pose.RightAnkle, -0.10, 0.34, 0.85},
}

// Config holds construction options for a Simulator.
type Config struct {
	// CycleDuration is the unloaded repetition period. Zero means
	// DefaultCycleDuration.
	CycleDuration time.Duration

	// TrackingPoint gets its confidence floored at trackingScoreFloor.
	TrackingPoint pose.KeypointName

	// LoadKg slows the cycle: heavier bars move slower.
	LoadKg float64

	// FatigueRate controls range-of-motion drift across repetitions.
	FatigueRate float64

	// Clock supplies elapsed time. Nil means the real clock.
	Clock clock.Clock

	// Noise supplies coordinate jitter. Nil means an unseeded source.
	Noise Noise
}

// Simulator produces a deterministic repetition cycle driven by elapsed
// time since creation or the last Reset.
type Simulator struct {
	cfg    Config
	clk    clock.Clock
	noise  Noise
	mu     sync.Mutex
	origin time.Time
}

// New creates a Simulator whose clock origin is now.
func New(cfg Config) *Simulator {
	if cfg.CycleDuration <= 0 {
		cfg.CycleDuration = DefaultCycleDuration
	}
	if cfg.TrackingPoint == "" {
		cfg.TrackingPoint = pose.LeftHip
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	noise := cfg.Noise
	if noise == nil {
		noise = &randNoise{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	return &Simulator{
		cfg:    cfg,
		clk:    clk,
		noise:  noise,
		origin: clk.Now(),
	}
}

// Reset moves the clock origin to now, so the next pose starts a fresh
// cycle at the eccentric phase with the rep counter at zero. Called
// whenever detection (re)starts.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = s.clk.Now()
}

// cycle returns the effective repetition period for the configured load.
func (s *Simulator) cycle() time.Duration {
	return s.cfg.CycleDuration + time.Duration(s.cfg.LoadKg*float64(loadSlowdownPerKg))
}

// NextPose returns the pose for the current instant. The timestamp is
// elapsed milliseconds since the clock origin.
func (s *Simulator) NextPose() pose.PoseData {
	s.mu.Lock()
	elapsed := s.clk.Now().Sub(s.origin)
	s.mu.Unlock()

	cycle := s.cycle()
	rep := int(elapsed / cycle)
	phase := float64(elapsed%cycle) / float64(cycle)

	base := basePosition(phase)
	base = s.applyFatigue(base, rep)

	keypoints := make([]pose.Keypoint, 0, len(bodyLayout))
	for _, bp := range bodyLayout {
		score := bp.score
		if bp.name == s.cfg.TrackingPoint && score < trackingScoreFloor {
			score = trackingScoreFloor
		}
		keypoints = append(keypoints, pose.Keypoint{
			Name:  bp.name,
			X:     clamp01(0.5 + bp.dx + s.noise.Jitter()),
			Y:     clamp01(base + bp.dy + s.noise.Jitter()),
			Score: score,
		})
	}
	return pose.PoseData{Keypoints: keypoints, Timestamp: elapsed.Milliseconds()}
}

// basePosition interpolates the base vertical position across the four
// phases of a repetition.
func basePosition(phase float64) float64 {
	travel := bottomPosition - topPosition
	switch {
	case phase < eccentricEnd:
		return topPosition + travel*(phase/eccentricEnd)
	case phase < bottomPauseEnd:
		return bottomPosition
	case phase < concentricEnd:
		frac := (phase - bottomPauseEnd) / (concentricEnd - bottomPauseEnd)
		return bottomPosition - travel*frac
	default:
		return topPosition
	}
}

// applyFatigue scales the base position by accumulated repetition drift,
// clamped so the scaled position never exceeds maxDriftPosition.
func (s *Simulator) applyFatigue(base float64, rep int) float64 {
	scaled := base * (1 + float64(rep)*s.cfg.FatigueRate*0.1)
	return math.Min(scaled, maxDriftPosition)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
