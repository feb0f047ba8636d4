// Package timeouts defines shared timeout constants used across the
// coordinator. Centralizing these values prevents drift between service
// boundaries and makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// Persist caps the time allowed for a single storage write when the
// finalize sweep flushes run summaries and player profiles.
const Persist = 5 * time.Second

// Shutdown limits how long the server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
