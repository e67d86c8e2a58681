// Package estimator runs the native pose-estimation capability: frames are
// read from a camera, shipped to a Python landmark service over a
// length-prefixed pipe protocol, and the per-frame landmark results are
// delivered to a callback.
package estimator

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/capture"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/detector"
)

// Config holds native estimator options. The model fields are forwarded to
// the landmark service unchanged.
type Config struct {
	// CameraID selects the capture device.
	CameraID int

	// ModelComplexity selects the model variant (0=lite, 1=full, 2=heavy).
	ModelComplexity int

	// MinDetectionConfidence and MinTrackingConfidence are the service's
	// own gating thresholds.
	MinDetectionConfidence float64
	MinTrackingConfidence  float64

	// CaptureFPS is the frame read rate. Zero means capture.DefaultFPS.
	CaptureFPS int
}

// DefaultConfig returns estimator options matching the full model.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:        1,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		CaptureFPS:             capture.DefaultFPS,
	}
}

// PoseEstimator drives the camera and the landmark service subprocess.
type PoseEstimator struct {
	config Config
	camera capture.Camera

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a PoseEstimator over the configured camera device. The
// service process is started by Start, not here.
func New(config Config) *PoseEstimator {
	if config.CaptureFPS <= 0 {
		config.CaptureFPS = capture.DefaultFPS
	}
	return &PoseEstimator{
		config: config,
		camera: capture.NewCamera(config.CameraID),
	}
}

// NewWithCamera creates a PoseEstimator over a caller-supplied camera,
// used by tests to substitute frame playback.
func NewWithCamera(config Config, cam capture.Camera) *PoseEstimator {
	if config.CaptureFPS <= 0 {
		config.CaptureFPS = capture.DefaultFPS
	}
	return &PoseEstimator{config: config, camera: cam}
}

// Probe verifies the landmark service exists on this machine. A missing
// service script means the platform has no pose capability at all.
func (e *PoseEstimator) Probe() error {
	if findPoseScript() == "" {
		return fmt.Errorf("pose_service.py not found: %w", detector.ErrPlatformUnsupported)
	}
	return nil
}

// Start opens the camera, launches the landmark service and begins the
// capture loop. Each frame's result is delivered to onResult as a decoded
// JSON object, with a millisecond timestamp measured from Start.
func (e *PoseEstimator) Start(onResult func(result any, timestampMs int64)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if err := e.camera.Open(); err != nil {
		return &detector.InitError{Reason: "open camera", Err: err}
	}
	if err := e.spawnService(); err != nil {
		e.camera.Close()
		return &detector.InitError{Reason: "start pose service", Err: err}
	}

	e.started = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	go e.captureLoop(onResult, e.stopCh, e.done)
	return nil
}

// Stop halts the capture loop, closes the camera and shuts the service
// down. It does not return until frame delivery has ended.
func (e *PoseEstimator) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	stop, done := e.stopCh, e.done
	e.mu.Unlock()

	close(stop)
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.camera.Close(); err != nil {
		log.Printf("close camera: %v", err)
	}
	return e.shutdownService()
}

// captureLoop reads frames at the configured rate and round-trips each one
// through the landmark service.
func (e *PoseEstimator) captureLoop(onResult func(any, int64), stop, done chan struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(e.config.CaptureFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := e.camera.ReadFrame()
			if err != nil {
				log.Printf("read frame: %v", err)
				continue
			}
			result, err := e.detect(frame)
			frame.Close()
			if err != nil {
				log.Printf("pose service: %v", err)
				continue
			}
			onResult(result, time.Since(start).Milliseconds())
		}
	}
}

// detect ships one frame to the service and decodes the landmark result.
func (e *PoseEstimator) detect(frame *gocv.Mat) (any, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stdin == nil {
		return nil, fmt.Errorf("pose service is not running")
	}

	// Length (4 bytes big-endian) then the JPEG payload.
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	if _, err := e.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := e.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := e.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Decoded generically; the result unwrapper owns shape probing.
	var result map[string]any
	if err := json.Unmarshal([]byte(line), &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return result, nil
}

// spawnService launches the Python landmark service. Caller holds e.mu.
func (e *PoseEstimator) spawnService() error {
	scriptPath := findPoseScript()
	if scriptPath == "" {
		return fmt.Errorf("pose_service.py not found: %w", detector.ErrPlatformUnsupported)
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	cmd := exec.Command(pythonPath, scriptPath,
		"--model-complexity", strconv.Itoa(e.config.ModelComplexity),
		"--min-detection-confidence", strconv.FormatFloat(e.config.MinDetectionConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(e.config.MinTrackingConfidence, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	return nil
}

// shutdownService stops the service process. Caller holds e.mu.
func (e *PoseEstimator) shutdownService() error {
	if e.cmd == nil {
		return nil
	}
	if e.stdin != nil {
		e.stdin.Close()
	}
	err := e.cmd.Wait()
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil
	return err
}
