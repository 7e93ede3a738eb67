package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/document"
	"github.com/flagmux/flagmux/internal/engine"
	"github.com/flagmux/flagmux/internal/telemetry"
	"github.com/flagmux/flagmux/internal/validation"
)

// SimpleFileAdapter serves flags from a simple-condition JSON document on
// disk, reloading when the file's mtime advances. Reload errors propagate to
// the router.
type SimpleFileAdapter struct {
	log   zerolog.Logger
	cache *document.Cache[engine.FeatureDocument]

	initialized bool
}

func NewSimpleFileAdapter(path string, log zerolog.Logger) *SimpleFileAdapter {
	return &SimpleFileAdapter{
		log:   log,
		cache: document.NewCache(path, validation.SimpleDocument),
	}
}

func (a *SimpleFileAdapter) Name() string { return NameSimpleFile }

// Init performs the first document load. A missing or malformed document is
// fatal to this adapter only.
func (a *SimpleFileAdapter) Init(_ context.Context) error {
	doc, _, err := a.cache.Load()
	if err != nil {
		return err
	}
	a.initialized = true

	a.log.Info().
		Str("provider", a.Name()).
		Str("file", a.cache.Path()).
		Int("flags", len(*doc)).
		Msg("simple-condition provider ready")
	return nil
}

func (a *SimpleFileAdapter) resolve(flagKey string, userID string, def engine.Value) (engine.Value, error) {
	if !a.initialized {
		return def, ErrAdapterNotInitialized
	}
	doc, reloaded, err := a.cache.Load()
	if err != nil {
		return def, fmt.Errorf("simple document: %w", err)
	}
	if reloaded {
		telemetry.DocumentReloads.WithLabelValues(a.Name()).Inc()
		a.log.Debug().Str("provider", a.Name()).Msg("document reloaded")
	}
	return engine.ResolveSimple(*doc, flagKey, engine.NewAttributes(userID), def), nil
}

func (a *SimpleFileAdapter) BoolValue(_ context.Context, flagKey string, def bool, userID string) (bool, error) {
	v, err := a.resolve(flagKey, userID, def)
	if err != nil {
		return def, err
	}
	return engine.CoerceBool(v, def), nil
}

func (a *SimpleFileAdapter) StringValue(_ context.Context, flagKey string, def string, userID string) (string, error) {
	v, err := a.resolve(flagKey, userID, def)
	if err != nil {
		return def, err
	}
	return engine.CoerceString(v, def), nil
}

// Path returns the document path this adapter serves.
func (a *SimpleFileAdapter) Path() string { return a.cache.Path() }
