package providers

import "errors"

// Error taxonomy (spec §7). TransientProviderError and RateLimitExceeded
// are handled inside internal/httpclient and never reach the adapter layer.
// ErrUnsupportedLeague is returned by Registry.Resolve; the bundled adapters
// return permanent failures as plain wrapped errors, not wrapping
// ErrPermanent; NotFound is the (nil, nil) convention below.
var (
	// ErrUnsupportedLeague is surfaced on configuration; it blocks the
	// affected team/group only, never the whole run.
	ErrUnsupportedLeague = errors.New("providers: unsupported league")

	// ErrPermanent wraps a PermanentProviderError: logged, the affected
	// team/event is skipped, the run continues.
	ErrPermanent = errors.New("providers: permanent provider error")
)

// NotFound is a sentinel nil-returning convention, not an error value: adapters
// return (nil, nil) for "no data", matching spec §4.1 NotFound -> returns nil.
