package provider

import (
	"context"
	"errors"
	"time"

	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/launchdarkly/go-server-sdk/v7/interfaces"
	"github.com/launchdarkly/go-server-sdk/v7/ldcomponents"
	"github.com/rs/zerolog"
)

// TargetingOnlineOptions carries the connection parameters for the
// contextual-targeting SDK in streaming mode. The endpoint overrides are for
// relay-proxy setups; empty strings keep the vendor defaults.
type TargetingOnlineOptions struct {
	SDKKey      string
	BaseURI     string
	StreamURI   string
	EventsURI   string
	InitTimeout time.Duration
	SendEvents  bool
}

// TargetingOnlineAdapter is a second, independent session of the
// contextual-targeting SDK connected to the vendor service. It never shares
// a client with the file-mode adapter. Evaluation errors propagate to the
// router.
type TargetingOnlineAdapter struct {
	opts TargetingOnlineOptions
	log  zerolog.Logger

	buildCtx targetingContextStrategy
	client   *ld.LDClient
}

func NewTargetingOnlineAdapter(opts TargetingOnlineOptions, log zerolog.Logger) *TargetingOnlineAdapter {
	return &TargetingOnlineAdapter{opts: opts, log: log}
}

func (a *TargetingOnlineAdapter) Name() string { return NameTargetingOnline }

func (a *TargetingOnlineAdapter) Init(_ context.Context) error {
	if a.opts.SDKKey == "" {
		return errors.New("targeting online: SDK key not set")
	}

	ctxStrategy, err := negotiateTargetingContext()
	if err != nil {
		return err
	}
	a.buildCtx = ctxStrategy

	cfg := ld.Config{}
	if a.opts.SendEvents {
		cfg.Events = ldcomponents.SendEvents()
	} else {
		cfg.Events = ldcomponents.NoEvents()
	}
	if a.opts.BaseURI != "" || a.opts.StreamURI != "" || a.opts.EventsURI != "" {
		cfg.ServiceEndpoints = interfaces.ServiceEndpoints{
			Polling:   a.opts.BaseURI,
			Streaming: a.opts.StreamURI,
			Events:    a.opts.EventsURI,
		}
	}

	client, err := ld.MakeCustomClient(a.opts.SDKKey, cfg, a.opts.InitTimeout)
	if err != nil {
		if client == nil {
			return err
		}
		// Timed-out initialization is non-fatal: the stream may still catch
		// up, and evaluations fall back to defaults until it does.
		a.log.Warn().Err(err).Str("provider", a.Name()).Msg("initialization wait expired")
	}
	a.client = client

	a.log.Info().
		Str("provider", a.Name()).
		Bool("send_events", a.opts.SendEvents).
		Msg("targeting online provider ready")
	return nil
}

func (a *TargetingOnlineAdapter) BoolValue(_ context.Context, flagKey string, def bool, userID string) (bool, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.BoolVariation(flagKey, buildTargetingContext(a.buildCtx, userID), def)
}

func (a *TargetingOnlineAdapter) StringValue(_ context.Context, flagKey string, def string, userID string) (string, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.StringVariation(flagKey, buildTargetingContext(a.buildCtx, userID), def)
}

func (a *TargetingOnlineAdapter) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}
