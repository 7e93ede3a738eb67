package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flagmux/flagmux/internal/api"
	"github.com/flagmux/flagmux/internal/config"
	"github.com/flagmux/flagmux/internal/logging"
	"github.com/flagmux/flagmux/internal/provider"
	"github.com/flagmux/flagmux/internal/router"
	"github.com/flagmux/flagmux/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "console")
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	telemetry.Init()

	reg := router.NewRegistry(log,
		provider.NewDaemonAdapter(cfg.DaemonHost, cfg.DaemonPort, cfg.DaemonTLS, log),
		provider.NewTargetingFileAdapter(cfg.TargetingSDKKey, cfg.TargetingFlagsFile, log),
		provider.NewTargetingOnlineAdapter(provider.TargetingOnlineOptions{
			SDKKey:      cfg.TargetingOnlineSDKKey,
			BaseURI:     cfg.TargetingOnlineBaseURI,
			StreamURI:   cfg.TargetingOnlineStreamURI,
			EventsURI:   cfg.TargetingOnlineEventsURI,
			InitTimeout: cfg.TargetingOnlineInitTimeout,
			SendEvents:  cfg.TargetingOnlineSendEvents,
		}, log),
		provider.NewSimpleFileAdapter(cfg.SimpleFlagsFile, log),
		provider.NewSegmentFileAdapter(cfg.SegmentEnvFile, log),
		provider.NewSegmentOnlineAdapter(provider.SegmentOnlineOptions{
			EnvKey:      cfg.SegmentOnlineEnvKey,
			APIURL:      cfg.SegmentOnlineAPIURL,
			TLSInsecure: cfg.SegmentOnlineTLSInsecure,
			Timeout:     cfg.SegmentOnlineTimeout,
		}, log),
	)
	reg.Init(context.Background())
	defer reg.Close()

	srvAPI := api.NewServer(cfg, reg, log)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("default_provider", cfg.DefaultProvider).Msg("gateway listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}
