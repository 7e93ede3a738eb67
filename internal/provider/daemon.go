package provider

import (
	"context"
	"fmt"

	flagd "github.com/open-feature/go-sdk-contrib/providers/flagd/pkg"
	"github.com/open-feature/go-sdk/openfeature"
	"github.com/rs/zerolog"
)

// DaemonAdapter evaluates flags against a local flag-evaluation daemon
// speaking the flagd protocol, through the OpenFeature client. Evaluation
// errors propagate to the router; the daemon is a critical dependency.
type DaemonAdapter struct {
	host string
	port int
	tls  bool
	log  zerolog.Logger

	client *openfeature.Client
}

// NewDaemonAdapter configures (but does not connect) a daemon adapter.
func NewDaemonAdapter(host string, port int, tls bool, log zerolog.Logger) *DaemonAdapter {
	return &DaemonAdapter{host: host, port: port, tls: tls, log: log}
}

func (a *DaemonAdapter) Name() string { return NameLocalDaemon }

// Init registers the daemon provider with the OpenFeature API and binds a
// client. The session is created once; it is never rebuilt per request.
func (a *DaemonAdapter) Init(_ context.Context) error {
	opts := []flagd.ProviderOption{
		flagd.WithHost(a.host),
		flagd.WithPort(uint16(a.port)),
	}
	if a.tls {
		// Empty certificate path means the system trust store.
		opts = append(opts, flagd.WithTLS(""))
	}

	if err := openfeature.SetProvider(flagd.NewProvider(opts...)); err != nil {
		return fmt.Errorf("register daemon provider: %w", err)
	}
	a.client = openfeature.NewClient("flagmux")

	a.log.Info().
		Str("provider", a.Name()).
		Str("host", a.host).
		Int("port", a.port).
		Bool("tls", a.tls).
		Msg("daemon provider ready")
	return nil
}

func (a *DaemonAdapter) BoolValue(ctx context.Context, flagKey string, def bool, userID string) (bool, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.BooleanValue(ctx, flagKey, def, BuildGenericContext(userID))
}

func (a *DaemonAdapter) StringValue(ctx context.Context, flagKey string, def string, userID string) (string, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.StringValue(ctx, flagKey, def, BuildGenericContext(userID))
}

// Close shuts down the OpenFeature provider registry.
func (a *DaemonAdapter) Close() error {
	if a.client != nil {
		openfeature.Shutdown()
	}
	return nil
}
