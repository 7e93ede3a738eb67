package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/launchdarkly/go-server-sdk/v7/ldcomponents"
	"github.com/launchdarkly/go-server-sdk/v7/ldfiledata"
	"github.com/launchdarkly/go-server-sdk/v7/ldfilewatch"
	"github.com/launchdarkly/go-server-sdk/v7/subsystems"
	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/document"
)

// initialFileLoadWait bounds how long Init blocks for the first file read.
// Exceeding it is non-fatal; the data source keeps loading in the background.
const initialFileLoadWait = 2 * time.Second

// fileDataSourceStrategy is one way of attaching a file-backed data source
// to the targeting SDK. SDK releases have differed here, so the table is
// negotiated once at adapter construction, preferring auto-reload.
type fileDataSourceStrategy struct {
	name      string
	configure func(path string) subsystems.ComponentConfigurer[subsystems.DataSource]
}

func fileDataSourceStrategies() []fileDataSourceStrategy {
	return []fileDataSourceStrategy{
		{
			name: "watched-file",
			configure: func(path string) subsystems.ComponentConfigurer[subsystems.DataSource] {
				return ldfiledata.DataSource().FilePaths(path).Reloader(ldfilewatch.WatchFiles)
			},
		},
		{
			name: "static-file",
			configure: func(path string) subsystems.ComponentConfigurer[subsystems.DataSource] {
				return ldfiledata.DataSource().FilePaths(path)
			},
		},
	}
}

func negotiateFileDataSource() (fileDataSourceStrategy, error) {
	for _, s := range fileDataSourceStrategies() {
		if s.configure != nil {
			return s, nil
		}
	}
	return fileDataSourceStrategy{}, ErrUnsupportedSDKVersion
}

// TargetingFileAdapter runs the contextual-targeting SDK against a local
// rule file with auto-reload, instead of the vendor's network service.
// Evaluation errors propagate to the router.
type TargetingFileAdapter struct {
	sdkKey string
	path   string
	log    zerolog.Logger

	buildCtx targetingContextStrategy
	client   *ld.LDClient
}

func NewTargetingFileAdapter(sdkKey, path string, log zerolog.Logger) *TargetingFileAdapter {
	return &TargetingFileAdapter{sdkKey: sdkKey, path: path, log: log}
}

func (a *TargetingFileAdapter) Name() string { return NameTargetingFile }

func (a *TargetingFileAdapter) Init(_ context.Context) error {
	if _, err := os.Stat(a.path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", document.ErrNotFound, a.path)
	}

	ctxStrategy, err := negotiateTargetingContext()
	if err != nil {
		return err
	}
	a.buildCtx = ctxStrategy

	dsStrategy, err := negotiateFileDataSource()
	if err != nil {
		return err
	}

	cfg := ld.Config{
		DataSource: dsStrategy.configure(a.path),
		Events:     ldcomponents.NoEvents(),
	}

	client, err := ld.MakeCustomClient(a.sdkKey, cfg, initialFileLoadWait)
	if err != nil {
		if client == nil {
			return fmt.Errorf("targeting file client: %w", err)
		}
		// The SDK hands back a usable client on a timed-out initial load.
		a.log.Warn().Err(err).Str("provider", a.Name()).Msg("initial file load still pending")
	}
	a.client = client

	a.log.Info().
		Str("provider", a.Name()).
		Str("file", a.path).
		Str("data_source", dsStrategy.name).
		Str("context_api", ctxStrategy.name).
		Msg("targeting file provider ready")
	return nil
}

func (a *TargetingFileAdapter) BoolValue(_ context.Context, flagKey string, def bool, userID string) (bool, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.BoolVariation(flagKey, buildTargetingContext(a.buildCtx, userID), def)
}

func (a *TargetingFileAdapter) StringValue(_ context.Context, flagKey string, def string, userID string) (string, error) {
	if a.client == nil {
		return def, ErrAdapterNotInitialized
	}
	return a.client.StringVariation(flagKey, buildTargetingContext(a.buildCtx, userID), def)
}

// Path returns the rule file this adapter watches.
func (a *TargetingFileAdapter) Path() string { return a.path }

func (a *TargetingFileAdapter) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}
