// Package constants defines magic numbers and default values shared across
// HTeaPot's engine, proxy, and wire packages.
package constants

import "time"

// Connection timeouts and limits, per spec.md §4.4/§4.6/§9.
const (
	// DefaultIdleTimeout is how long a connection may sit with no bytes
	// readable between requests before the worker closes it.
	DefaultIdleTimeout = 30 * time.Second
	// DefaultConnTimeout is the upstream-connect timeout the proxy
	// forwarder uses — spec.md §9 leaves this open; 10s is the value
	// carried over unchanged from the teacher.
	DefaultConnTimeout = 10 * time.Second
	// DefaultReadTimeout is a 30s per-read bound. Nothing in this module
	// applies it: the engine bounds the read of each request with
	// DefaultIdleTimeout, and the proxy forwarder sets one ConnTimeout
	// deadline on the whole upstream exchange.
	DefaultReadTimeout = 30 * time.Second
)

// Worker pool defaults, per spec.md §4.4.
const (
	DefaultWorkerCount = 4
)

// HTTP framing limits, per spec.md §4.1.
const (
	// DefaultMaxBodyBytes bounds a single request body absent an
	// explicit, smaller configuration — spec.md leaves the exact default
	// unspecified beyond "a single configurable maximum"; 10MB is a
	// reasonable origin-server default.
	DefaultMaxBodyBytes = 10 * 1024 * 1024
)
