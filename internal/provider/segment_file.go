package provider

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/document"
	"github.com/flagmux/flagmux/internal/engine"
	"github.com/flagmux/flagmux/internal/telemetry"
	"github.com/flagmux/flagmux/internal/validation"
)

// SegmentFileAdapter serves flags from a segment JSON document on disk. The
// derived indexes are rebuilt in full on every successful reload and
// published by pointer swap; readers never observe a partially built index.
//
// This is a best-effort path: steady-state failures degrade to the caller's
// default (logged), they do not propagate.
type SegmentFileAdapter struct {
	log   zerolog.Logger
	cache *document.Cache[engine.SegmentDocument]
	idx   atomic.Pointer[engine.Index]
}

func NewSegmentFileAdapter(path string, log zerolog.Logger) *SegmentFileAdapter {
	return &SegmentFileAdapter{
		log:   log,
		cache: document.NewCache(path, validation.SegmentDocument),
	}
}

func (a *SegmentFileAdapter) Name() string { return NameSegmentFile }

// Init performs the first load and index build. A missing or malformed
// document is fatal to this adapter only.
func (a *SegmentFileAdapter) Init(_ context.Context) error {
	doc, _, err := a.cache.Load()
	if err != nil {
		return err
	}
	a.idx.Store(engine.BuildIndex(doc))

	a.log.Info().
		Str("provider", a.Name()).
		Str("file", a.cache.Path()).
		Int("features", len(doc.Features)).
		Int("segments", len(doc.Segments)).
		Msg("segment provider ready")
	return nil
}

// index returns the current index, rebuilding it after a reload. When a
// reload fails, the previously published index stays in service.
func (a *SegmentFileAdapter) index() (*engine.Index, bool) {
	published := a.idx.Load()
	if published == nil {
		return nil, false
	}

	doc, reloaded, err := a.cache.Load()
	if err != nil {
		a.log.Warn().Err(err).Str("provider", a.Name()).Msg("document reload failed; serving previous revision")
		return published, true
	}
	if reloaded {
		fresh := engine.BuildIndex(doc)
		a.idx.Store(fresh)
		telemetry.DocumentReloads.WithLabelValues(a.Name()).Inc()
		a.log.Debug().Str("provider", a.Name()).Msg("segment indexes rebuilt")
		return fresh, true
	}
	return published, true
}

func (a *SegmentFileAdapter) BoolValue(_ context.Context, flagKey string, def bool, userID string) (bool, error) {
	ix, ok := a.index()
	if !ok {
		return def, ErrAdapterNotInitialized
	}
	fid, ok := ix.FeatureID(flagKey)
	if !ok {
		return def, nil
	}
	st, ok := ix.ResolveState(fid, engine.NewAttributes(userID))
	return engine.BoolFromState(st, ok, def), nil
}

func (a *SegmentFileAdapter) StringValue(_ context.Context, flagKey string, def string, userID string) (string, error) {
	ix, ok := a.index()
	if !ok {
		return def, ErrAdapterNotInitialized
	}
	fid, ok := ix.FeatureID(flagKey)
	if !ok {
		return def, nil
	}
	st, ok := ix.ResolveState(fid, engine.NewAttributes(userID))
	return engine.StringFromState(st, ok, def), nil
}

// Path returns the document path this adapter serves.
func (a *SegmentFileAdapter) Path() string { return a.cache.Path() }
