package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// lookupCacheEntries bounds the in-memory lookup and suggestion cache.
	lookupCacheEntries = 1024
)

// Version is the server build version, set by main.
var Version = "dev"
