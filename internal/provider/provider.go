// Package provider implements the per-backend adapters that normalize the
// gateway's heterogeneous flag providers into two uniform operations:
// boolean evaluation and string evaluation.
//
// Failure isolation differs deliberately between adapter families. The
// local-daemon and both targeting adapters propagate evaluation errors to
// the router: they stand in for a genuinely unavailable critical dependency.
// The two segment adapters degrade to the caller-supplied default on
// transport failure, logging instead of surfacing. Callers must preserve
// this asymmetry.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Provider names form a closed set; requests naming anything else fall back
// to the configured default.
const (
	NameLocalDaemon     = "local-daemon"
	NameTargetingFile   = "targeting-file"
	NameTargetingOnline = "targeting-online"
	NameSimpleFile      = "simple-file"
	NameSegmentFile     = "segment-file"
	NameSegmentOnline   = "segment-online"
)

var (
	// ErrUnsupportedSDKVersion reports that no known strategy could attach
	// the file-backed data source to the targeting SDK.
	ErrUnsupportedSDKVersion = errors.New("unsupported targeting SDK version: cannot attach file data source")

	// ErrUnsupportedBackend reports that no known strategy could construct
	// a targeting context for the backend SDK.
	ErrUnsupportedBackend = errors.New("unsupported backend: no targeting context construction strategy")

	// ErrAdapterNotInitialized reports a request routed to an adapter whose
	// initialization never succeeded. Surfaced per request; never a crash.
	ErrAdapterNotInitialized = errors.New("adapter not initialized")
)

// Adapter is the uniform contract every backend implements. Init runs once
// at startup; a failed Init marks the adapter unavailable and every call
// targeting it fails fast rather than retrying.
type Adapter interface {
	Name() string
	Init(ctx context.Context) error
	BoolValue(ctx context.Context, flagKey string, def bool, userID string) (bool, error)
	StringValue(ctx context.Context, flagKey string, def string, userID string) (string, error)
}

// EvaluationError wraps any underlying backend failure during a per-request
// call, naming the failing provider and flag key.
type EvaluationError struct {
	Provider string
	Flag     string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("provider %s: flag %q: %v", e.Provider, e.Flag, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
