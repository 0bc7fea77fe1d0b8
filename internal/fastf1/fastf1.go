// Package fastf1 provides access to the external telemetry provider. It
// defines the contract the handlers consume and an HTTP client for the
// FastF1 bridge service, with an optional process-wide on-disk response
// cache.
package fastf1

import (
	"context"

	"github.com/apexcompute/apex-compute/internal/laps"
)

// LoadOptions selects which parts of a session the provider fetches.
// Disabling unused parts keeps load latency down; it has no correctness
// effect.
type LoadOptions struct {
	Laps      bool
	Telemetry bool
	Weather   bool
	Messages  bool
}

// DefaultLoadOptions fetches everything, matching the provider's own
// defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Laps: true, Telemetry: true, Weather: true, Messages: true}
}

// LapsOnly fetches lap data and nothing else.
func LapsOnly() LoadOptions {
	return LoadOptions{Laps: true}
}

// Provider hands out session handles for a year/grand-prix/session
// combination. The gp value is passed through verbatim; the provider decides
// whether it is an event name or a round number.
type Provider interface {
	GetSession(year int, gp, session string) (Session, error)
}

// Session is a handle to one on-track session. Load must be called before
// any accessor; it blocks and may perform network or disk I/O.
type Session interface {
	Load(ctx context.Context, opts LoadOptions) error

	// Name returns the session's display name, or "" if the provider does
	// not expose one.
	Name() string

	// Drivers returns driver identifiers in the provider's order.
	Drivers() ([]string, error)

	// Laps returns the session's lap table. May be empty when the session
	// was loaded without lap data.
	Laps() *laps.Table
}
