// Package source bridges a pose-producing capability, either a native
// estimator or the synthetic simulator, into the detector's ingest path.
// The selection happens once at construction, and downstream subscribers
// cannot tell which source is active.
package source

// Estimator is a native pose-estimation capability delivering per-frame
// results asynchronously.
type Estimator interface {
	// Probe verifies the capability can start. It returns
	// detector.ErrPlatformUnsupported (possibly wrapped) when the platform
	// has no landmark source at all, or a *detector.InitError for a
	// recoverable startup fault.
	Probe() error

	// Start begins frame delivery. onResult is invoked once per frame
	// with the raw estimator result and a millisecond timestamp, until
	// Stop is called.
	Start(onResult func(result any, timestampMs int64)) error

	// Stop halts frame delivery. It must not return while a callback is
	// still being issued.
	Stop() error
}
