package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/estimator"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/pose"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/server"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/session"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/source"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/store"
	"github.com/spfitnesscoach123-cmd/paixao-sub002/internal/tray"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	sim := flag.Bool("sim", false, "force the simulated pose source")
	load := flag.Float64("load", 0, "simulated load in kg")
	fatigue := flag.Float64("fatigue", 0, "simulated fatigue rate per rep")
	tracking := flag.String("tracking", string(pose.LeftWrist), "keypoint tracked for bar velocity")
	simFPS := flag.Int("sim-fps", 0, "simulated frame rate (0 = default)")
	cameraID := flag.Int("camera", 0, "capture device ID for the native source")
	withTray := flag.Bool("tray", false, "run with a system tray menu")
	flag.Parse()

	fmt.Println("VBT Pose - Bar Velocity Pose Capture")

	trackingPoint := pose.KeypointName(*tracking)
	if !pose.IsCanonical(trackingPoint) {
		log.Fatalf("Unknown tracking keypoint %q", *tracking)
	}

	// Initialize the store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".vbtpose")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dbDir, "vbtpose.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	estCfg := estimator.DefaultConfig()
	estCfg.CameraID = *cameraID

	mgr := session.NewManager(session.Config{
		Store: st,
		Source: source.Config{
			TrackingPoint: trackingPoint,
			LoadKg:        *load,
			FatigueRate:   *fatigue,
			SimulationFPS: *simFPS,
			UseSimulation: *sim,
			Estimator:     estimator.New(estCfg),
			OnCameraReady: func() {
				log.Println("camera ready, frames flowing")
			},
		},
	})
	defer mgr.Close()

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Manager:   mgr,
	})

	if *withTray {
		// systray must own the main thread; the server moves to a
		// goroutine.
		go func() {
			fmt.Printf("Starting server on %s\n", *addr)
			if err := srv.ListenAndServe(*addr); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		}()
		runTray(mgr, *addr)
		return
	}

	fmt.Printf("Starting server on %s\n", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// runTray blocks on the system tray loop, toggling capture from the menu.
func runTray(mgr *session.Manager, addr string) {
	t := tray.New()

	t.OnToggle(func(capturing bool) {
		if capturing {
			if err := mgr.Start(); err != nil {
				log.Printf("start capture: %v", err)
				t.SetStatus("Error: " + err.Error())
				return
			}
			st := mgr.Status()
			if st.Simulated {
				t.SetStatus("Capturing (simulated)")
			} else {
				t.SetStatus("Capturing (camera)")
			}
			return
		}
		mgr.Stop()
		t.SetStatus("")
	})

	t.OnDashboard(func() {
		if err := openBrowser("http://localhost" + addr); err != nil {
			log.Printf("open dashboard: %v", err)
		}
	})

	t.OnQuit(func() {
		mgr.Stop()
	})

	t.Run()
}

// openBrowser opens url in the platform default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.vbtpose/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".vbtpose", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
