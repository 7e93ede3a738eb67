// Package router dispatches flag evaluations to the adapter named by the
// request, falling back to the configured default provider for unknown or
// absent names.
package router

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/provider"
	"github.com/flagmux/flagmux/internal/telemetry"
)

var knownProviders = map[string]struct{}{
	provider.NameLocalDaemon:     {},
	provider.NameTargetingFile:   {},
	provider.NameTargetingOnline: {},
	provider.NameSimpleFile:      {},
	provider.NameSegmentFile:     {},
	provider.NameSegmentOnline:   {},
}

// KnownProvider reports whether name belongs to the closed provider set.
func KnownProvider(name string) bool {
	_, ok := knownProviders[name]
	return ok
}

// EffectiveProvider resolves the provider a request should hit. A recognized
// requested name wins; anything else, including the empty string, yields the
// configured default verbatim.
func EffectiveProvider(requested, configuredDefault string) string {
	if KnownProvider(requested) {
		return requested
	}
	return configuredDefault
}

// Registry holds the constructed adapters and their initialization state.
// Adapters whose Init failed stay registered so requests naming them fail
// fast with a per-request error instead of crashing startup.
type Registry struct {
	log      zerolog.Logger
	adapters map[string]provider.Adapter
	ready    map[string]bool
}

func NewRegistry(log zerolog.Logger, adapters ...provider.Adapter) *Registry {
	r := &Registry{
		log:      log,
		adapters: make(map[string]provider.Adapter, len(adapters)),
		ready:    make(map[string]bool, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Init initializes every registered adapter. A failing adapter is logged and
// marked unavailable; startup always proceeds.
func (r *Registry) Init(ctx context.Context) {
	ready := 0
	for name, a := range r.adapters {
		if err := a.Init(ctx); err != nil {
			r.log.Warn().Err(err).Str("provider", name).Msg("adapter initialization failed; provider unavailable")
			continue
		}
		r.ready[name] = true
		ready++
	}
	telemetry.AdaptersReady.Set(float64(ready))
	r.log.Info().Int("ready", ready).Int("registered", len(r.adapters)).Msg("provider registry initialized")
}

// Ready reports whether the named adapter initialized successfully.
func (r *Registry) Ready(name string) bool { return r.ready[name] }

func (r *Registry) adapter(name string) (provider.Adapter, error) {
	a, ok := r.adapters[name]
	if !ok || !r.ready[name] {
		// Wrap the not-initialized sentinel with the provider name for
		// per-request reporting.
		return nil, &provider.EvaluationError{Provider: name, Err: provider.ErrAdapterNotInitialized}
	}
	return a, nil
}

// EvaluateBoolean evaluates a boolean flag against the named provider. Any
// backend failure comes back as a *provider.EvaluationError.
func (r *Registry) EvaluateBoolean(ctx context.Context, providerName, flagKey string, def bool, userID string) (bool, error) {
	a, err := r.adapter(providerName)
	if err != nil {
		telemetry.Evaluations.WithLabelValues(providerName, "bool", "error").Inc()
		return def, err
	}
	v, err := a.BoolValue(ctx, flagKey, def, userID)
	if err != nil {
		telemetry.Evaluations.WithLabelValues(providerName, "bool", "error").Inc()
		return def, &provider.EvaluationError{Provider: providerName, Flag: flagKey, Err: err}
	}
	telemetry.Evaluations.WithLabelValues(providerName, "bool", "ok").Inc()
	return v, nil
}

// EvaluateString evaluates a string flag against the named provider.
func (r *Registry) EvaluateString(ctx context.Context, providerName, flagKey string, def string, userID string) (string, error) {
	a, err := r.adapter(providerName)
	if err != nil {
		telemetry.Evaluations.WithLabelValues(providerName, "string", "error").Inc()
		return def, err
	}
	v, err := a.StringValue(ctx, flagKey, def, userID)
	if err != nil {
		telemetry.Evaluations.WithLabelValues(providerName, "string", "error").Inc()
		return def, &provider.EvaluationError{Provider: providerName, Flag: flagKey, Err: err}
	}
	telemetry.Evaluations.WithLabelValues(providerName, "string", "ok").Inc()
	return v, nil
}

// Adapter exposes a registered adapter by name regardless of readiness.
// Diagnostic handlers use it to report on providers that failed Init.
func (r *Registry) Adapter(name string) (provider.Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Close shuts down every adapter that holds external resources.
func (r *Registry) Close() {
	for name, a := range r.adapters {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.log.Warn().Err(err).Str("provider", name).Msg("adapter close failed")
			}
		}
	}
}
