package httpapi

import "time"

const (
	defaultMaxBodyBytes   int64 = 1 << 20
	defaultStatusInterval       = 2 * time.Second
)

// Process-wide HTTP settings, set once by the serve command before NewMux.
var (
	maxBodyBytes = defaultMaxBodyBytes
	// Bound on handlers that wait for the coordinator (unload, optimize,
	// load?wait=1). Zero leaves only the request context.
	waitTimeout time.Duration
	// Push period of /ws/status.
	statusInterval = defaultStatusInterval
)

// SetMaxBodyBytes caps JSON request bodies; n <= 0 restores 1 MiB.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// SetWaitTimeout bounds coordinator waits; 0 disables the bound.
func SetWaitTimeout(d time.Duration) { waitTimeout = max(d, 0) }

// SetStatusInterval sets the /ws/status push period.
func SetStatusInterval(d time.Duration) {
	if d <= 0 {
		d = defaultStatusInterval
	}
	statusInterval = d
}

// CORS is off unless enabled; empty method and header lists take the
// defaults in corsOptions.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions enables or disables the CORS middleware.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
