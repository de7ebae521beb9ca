package domain

import (
	"errors"
	"fmt"
)

// Input errors. Reported before any network call.
var (
	ErrNoDestinations    = errors.New("no destinations to route")
	ErrMultipleEndpoints = errors.New("more than one stop is flagged as end point")
	ErrDuplicateStopID   = errors.New("duplicate stop id")
	ErrMissingStopID     = errors.New("stop id is required")
	ErrInvalidLocation   = errors.New("coordinates out of range")
	ErrInvalidTravelMode = errors.New("unsupported travel mode")
)

// Provider errors. Recovered inside the engine, never returned by ComputeRoute.
var (
	ErrProviderRejected   = errors.New("trip provider rejected the request")
	ErrOrderingMismatch   = errors.New("trip provider ordering does not match requested stops")
	ErrSegmentUnreachable = errors.New("segment provider found no path")
)

// ErrAddressNotFound is returned by geocoders when an address has no match.
var ErrAddressNotFound = errors.New("address not found")

// UnresolvedAddressError aborts route computation for the first stop that cannot be geocoded.
type UnresolvedAddressError struct {
	StopID  string
	Address string
	Err     error
}

func (e *UnresolvedAddressError) Error() string {
	return fmt.Sprintf("unresolved address for stop %q (%q): %v", e.StopID, e.Address, e.Err)
}

func (e *UnresolvedAddressError) Unwrap() error { return e.Err }
