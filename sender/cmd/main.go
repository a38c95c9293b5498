package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/config"
	"github.com/Cogwheel-Validator/spectra-sender/sender/gate"
	"github.com/Cogwheel-Validator/spectra-sender/sender/gateway"
	"github.com/Cogwheel-Validator/spectra-sender/sender/history"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/Cogwheel-Validator/spectra-sender/sender/rpc"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// share the logger with every package
	rpc.SetLogger(log)
	router.SetLogger(log)
	gate.SetLogger(log)
	gateway.SetLogger(log)
	history.SetLogger(log)
	config.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "sender config file (toml); SENDER_ env vars are used when empty")
	networksSource := flag.String("networks", "", "networks file or go-getter url, overrides networks_source")
	flag.Parse()

	var path *string
	if *configPath != "" {
		path = configPath
	}
	cfg, err := config.LoadSenderConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load sender config")
	}
	if *networksSource != "" {
		cfg.NetworksSource = *networksSource
	}

	log.Info().
		Str("config", *configPath).
		Str("networks", cfg.NetworksSource).
		Msg("Starting Spectra sender")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := config.NewNetworkLoader(cfg.NetworksCacheDir)
	networks, err := loader.Load(ctx, cfg.NetworksSource)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load networks")
	}

	gw, err := gateway.NewClient(cfg.GatewayURLs[0], cfg.GatewayURLs[1:], gateway.Config{
		MaxRetries:          cfg.GatewayMaxRetries,
		RetryDelay:          cfg.GatewayRetryDelay,
		HealthCheckInterval: cfg.HealthCheckInterval,
		Timeout:             cfg.GatewayTimeout,
		PollInterval:        cfg.PollInterval,
		PollRate:            cfg.PollRate,
		MaxPollFailures:     cfg.MaxPollFailures,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gateway client")
	}

	confirmations := gate.New()
	store := history.NewMemoryStore()

	sender, err := router.NewSender(router.Collaborators{
		Wallet:   gw,
		Executor: gw,
		Gate:     confirmations,
		History:  store,
		Watcher:  gw,
		Waiter:   gw,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sender")
	}

	svc := rpc.NewSenderServer(
		sender,
		confirmations,
		store,
		networks,
		time.Duration(cfg.DefaultDeadlineMinutes)*time.Minute,
		rpc.WithSessionRetention(cfg.SessionRetention),
	)

	server, err := rpc.NewServer(ctx, buildServerConfig(cfg), svc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RPC server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	// running sends end as cancelled, then the background trackers stop
	svc.Close()
	sender.Close()
	gw.Close()
	log.Info().Msg("Sender stopped")
}

// buildServerConfig converts the loaded SenderConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.SenderConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus,
	}
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.Burst = &cfg.MaxConcurrentRequests
	}

	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:    defaultString(cfg.ServiceName, "spectra-sender"),
			ServiceVersion: defaultString(cfg.ServiceVersion, "0.1.0"),
			Environment:    defaultString(cfg.Environment, "development"),
			EnableTracing:  cfg.EnableTracing,
			UseOTLPTraces:  cfg.UseOTLPTraces,
			OTLPTracesURL:  cfg.OTLPTracesURL,
			// the prometheus exporter needs a meter provider
			EnableMetrics:   cfg.EnableMetrics || cfg.UsePrometheus,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}
	return serverConfig
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
