// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Request limits
const (
	// MaxJSONBodySize caps API request bodies. A 128-value descriptor is a few KB.
	MaxJSONBodySize = 64 << 10

	// MaxFormBodySize caps form-encoded page submissions
	MaxFormBodySize = 16 << 10
)

// Server timeouts
const (
	// RequestTimeout is the per-request deadline applied by the router
	RequestTimeout = 30 * time.Second

	// ReadHeaderTimeout bounds how long a client may take to send headers
	ReadHeaderTimeout = 10 * time.Second

	// ShutdownTimeout is how long in-flight requests get on SIGINT/SIGTERM
	ShutdownTimeout = 10 * time.Second
)

// Session constants
const (
	// SessionCleanupInterval is how often expired sessions are purged
	SessionCleanupInterval = 15 * time.Minute
)


// Client-side face recognition assets. Descriptors are computed in the browser.
const (
	FaceLibraryURL = "https://cdn.jsdelivr.net/npm/face-api.js@0.22.2/dist/face-api.min.js"
	FaceModelsURL  = "https://cdn.jsdelivr.net/gh/justadudewhohacks/face-api.js@0.22.2/weights"
)
