package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	flagsmith "github.com/Flagsmith/flagsmith-go-client/v3"
	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/engine"
	"github.com/flagmux/flagmux/internal/telemetry"
)

// SegmentOnlineOptions carries the connection parameters for the remote
// segment service.
type SegmentOnlineOptions struct {
	EnvKey      string
	APIURL      string
	TLSInsecure bool
	Timeout     time.Duration
}

// identityFlagsFetcher fetches identity-scoped flag values from the remote
// segment service. It exists so transport failure is testable without a
// network.
type identityFlagsFetcher interface {
	BoolFlag(ctx context.Context, flagKey, userID string) (bool, error)
	StringFlag(ctx context.Context, flagKey, userID string) (string, error)
}

// remoteFetcher is the production fetcher backed by the segment vendor SDK.
// Flags are fetched per call, scoped to the identity; no local caching.
type remoteFetcher struct {
	client *flagsmith.Client
}

func (f *remoteFetcher) traits(userID string) []*flagsmith.Trait {
	return []*flagsmith.Trait{{TraitKey: "userId", TraitValue: userID}}
}

func (f *remoteFetcher) BoolFlag(ctx context.Context, flagKey, userID string) (bool, error) {
	flags, err := f.client.GetIdentityFlags(ctx, userID, f.traits(userID))
	if err != nil {
		return false, err
	}
	return flags.IsFeatureEnabled(flagKey)
}

func (f *remoteFetcher) StringFlag(ctx context.Context, flagKey, userID string) (string, error) {
	flags, err := f.client.GetIdentityFlags(ctx, userID, f.traits(userID))
	if err != nil {
		return "", err
	}
	v, err := flags.GetFeatureValue(flagKey)
	if err != nil {
		return "", err
	}
	return engine.CoerceString(v, ""), nil
}

// SegmentOnlineAdapter evaluates flags against the remote segment service.
// This is a best-effort path: any transport failure is logged and replaced
// by the caller-supplied default, never propagated.
type SegmentOnlineAdapter struct {
	opts    SegmentOnlineOptions
	log     zerolog.Logger
	fetcher identityFlagsFetcher
}

func NewSegmentOnlineAdapter(opts SegmentOnlineOptions, log zerolog.Logger) *SegmentOnlineAdapter {
	return &SegmentOnlineAdapter{opts: opts, log: log}
}

func (a *SegmentOnlineAdapter) Name() string { return NameSegmentOnline }

func (a *SegmentOnlineAdapter) Init(_ context.Context) error {
	if a.opts.EnvKey == "" {
		return errors.New("segment online: environment key not set")
	}

	if a.opts.TLSInsecure {
		// DEMO ONLY: disables TLS verification process-wide.
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			insecure := base.Clone()
			insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			http.DefaultTransport = insecure
		}
		a.log.Warn().Str("provider", a.Name()).Msg("TLS verification disabled")
	}

	opts := []flagsmith.Option{
		flagsmith.WithRequestTimeout(a.opts.Timeout),
	}
	if a.opts.APIURL != "" {
		opts = append(opts, flagsmith.WithBaseURL(a.opts.APIURL))
	}
	a.fetcher = &remoteFetcher{client: flagsmith.NewClient(a.opts.EnvKey, opts...)}

	a.log.Info().
		Str("provider", a.Name()).
		Dur("timeout", a.opts.Timeout).
		Bool("tls_insecure", a.opts.TLSInsecure).
		Msg("segment online provider ready")
	return nil
}

func (a *SegmentOnlineAdapter) BoolValue(ctx context.Context, flagKey string, def bool, userID string) (bool, error) {
	if a.fetcher == nil {
		return def, ErrAdapterNotInitialized
	}
	uid := userID
	if uid == "" {
		uid = engine.AnonymousUserID
	}
	v, err := a.fetcher.BoolFlag(ctx, flagKey, uid)
	if err != nil {
		a.degrade(flagKey, uid, "bool", err)
		return def, nil
	}
	return v, nil
}

func (a *SegmentOnlineAdapter) StringValue(ctx context.Context, flagKey string, def string, userID string) (string, error) {
	if a.fetcher == nil {
		return def, ErrAdapterNotInitialized
	}
	uid := userID
	if uid == "" {
		uid = engine.AnonymousUserID
	}
	v, err := a.fetcher.StringFlag(ctx, flagKey, uid)
	if err != nil {
		a.degrade(flagKey, uid, "string", err)
		return def, nil
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (a *SegmentOnlineAdapter) degrade(flagKey, userID, valueType string, err error) {
	telemetry.Evaluations.WithLabelValues(a.Name(), valueType, "degraded").Inc()
	a.log.Warn().
		Err(err).
		Str("provider", a.Name()).
		Str("flag", flagKey).
		Str("user", userID).
		Msg("remote evaluation failed; serving caller default")
}
