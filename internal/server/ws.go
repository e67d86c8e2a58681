package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/detector"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// poseMessage is one frame on the wire. Pose is null when the frame had no
// usable landmarks, mirroring the subscriber contract.
type poseMessage struct {
	Pose *pose.PoseData `json:"pose"`
}

// PoseStreamHandler streams live poses to WebSocket clients by subscribing
// each connection to the detector.
type PoseStreamHandler struct {
	detector *detector.Detector
}

// NewPoseStreamHandler creates a PoseStreamHandler over the given detector.
func NewPoseStreamHandler(d *detector.Detector) *PoseStreamHandler {
	return &PoseStreamHandler{detector: d}
}

// ServeHTTP upgrades the connection and forwards every broadcast pose
// until the client goes away. A slow client drops frames rather than
// stalling the fan-out.
func (h *PoseStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The subscriber callback runs on the ingest path, so it must not
	// block on the network: it hands frames to a buffered channel and a
	// dedicated writer goroutine drains it.
	frames := make(chan poseMessage, 8)
	unsubscribe := h.detector.Subscribe(func(p *pose.PoseData) {
		select {
		case frames <- poseMessage{Pose: p}:
		default: // client is behind, drop the frame
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Drain control/close messages from the client.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg := <-frames:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
