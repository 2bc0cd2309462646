// Package main is the entry point for Crystal Ball Prophecies.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/crystal-ball/business/blockchain"
	blockchainDI "github.com/fd1az/crystal-ball/business/blockchain/di"
	"github.com/fd1az/crystal-ball/business/oracle"
	"github.com/fd1az/crystal-ball/business/oracle/infra"
	"github.com/fd1az/crystal-ball/internal/apm"
	"github.com/fd1az/crystal-ball/internal/config"
	"github.com/fd1az/crystal-ball/internal/health"
	"github.com/fd1az/crystal-ball/internal/httpclient"
	"github.com/fd1az/crystal-ball/internal/logger"
	"github.com/fd1az/crystal-ball/internal/metrics"
	"github.com/fd1az/crystal-ball/internal/monolith"
	"github.com/fd1az/crystal-ball/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Read questions from stdin instead of the TUI")
	connector := flag.String("connector", "", "Wallet connector to auto-connect (keystore, privatekey)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crystal-ball %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for headless use
	tuiMode := !*cliMode

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, *connector, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, connector string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.App.TUIMode = tuiMode
	if connector != "" {
		cfg.Wallet.DefaultConnector = connector
		cfg.Wallet.AutoConnect = true
	}
	if !tuiMode {
		// headless mode has no connector picker
		cfg.Wallet.AutoConnect = true
	}

	logLevel := logger.ParseLevel(cfg.App.LogLevel)

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting Crystal Ball Prophecies",
			"version", version,
			"environment", cfg.App.Environment,
			"chain", cfg.Chain.Name,
		)
	}

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if cfg.Health.Enabled {
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			healthServer.Stop(shutdownCtx)
		}()
	}

	httpClient, err := httpclient.New(
		httpclient.WithProviderName("rpc"),
		httpclient.WithRequestTimeout(cfg.Chain.RequestTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}

	mono, err := monolith.New(ctx, cfg, log, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	blockchainModule := &blockchain.Module{}
	oracleModule := &oracle.Module{}

	var presenter *infra.ConsolePresenter
	if !tuiMode {
		presenter = infra.NewConsolePresenter()
		oracleModule.Presenter = presenter
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		blockchainModule, // Must be first - provides wallet and chain reads
		oracleModule,     // Depends on blockchain
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	registerHealthChecks := func() {
		healthServer.RegisterCheck("rpc", rpcCheck(blockchainDI.GetReader(mono.Services())))
		healthServer.RegisterCheck("wallet", walletCheck(blockchainDI.GetConnectionService(mono.Services())))
	}

	if tuiMode {
		// TUI mode: Start modules in background so TUI shows immediately
		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "rpc", Status: "connecting"})
			ui.Send(ui.StartupMsg{Step: "wallet", Status: "connecting"})
			if err := mono.StartModules(ctx, blockchainModule); err != nil {
				ui.Send(ui.StartupMsg{Step: "rpc", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}
			ui.Send(ui.StartupMsg{Step: "rpc", Status: "connected"})
			ui.Send(ui.StartupMsg{Step: "wallet", Status: "done"})

			ui.Send(ui.StartupMsg{Step: "oracle", Status: "connecting"})
			if err := mono.StartModules(ctx, oracleModule); err != nil {
				ui.Send(ui.StartupMsg{Step: "oracle", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}
			ui.Send(ui.StartupMsg{Step: "oracle", Status: "done"})

			registerHealthChecks()
			ui.Send(ui.ReadyMsg{Controller: newController(mono.Services())})
			return nil
		}
		stopFunc := func() {
			oracle.Shutdown(mono.Services())
		}
		return runTUI(ctx, startFunc, stopFunc)
	}

	// CLI mode: Start modules synchronously
	presenter.Banner()

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	defer oracle.Shutdown(mono.Services())
	registerHealthChecks()

	log.Info(ctx, "all modules started, reading questions from stdin")
	return runCLI(ctx, os.Stdin, os.Stdout, newController(mono.Services()))
}

// setupTelemetry installs tracing and metrics when enabled and returns the
// matching shutdown func.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	// Set service name env var for OTEL
	if cfg.Telemetry.ServiceName != "" {
		os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	}

	traceProvider, err := apm.NewTraceProvider(log, apm.Options{
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if cfg.Telemetry.TraceProvider == string(apm.OTLPGRPCProvider) && cfg.Telemetry.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, nil, metrics.InsecureOtel)))
	}

	meterProvider, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.ServePrometheusMetrics(
		metrics.WithPort(strconv.Itoa(port)),
		metrics.WithErrorHandler(func(err error) {
			log.Warn(context.Background(), "prometheus server stopped", "error", err)
		}),
	)
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		promServer.Shutdown(shutdownCtx)
		meterProvider.Shutdown(shutdownCtx)
		traceProvider.Stop()
	}, nil
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func()) error {
	// Signal from the welcome screen
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	started := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		// Connections happen here, TUI shows progress
		if err := startFunc(); err != nil {
			ui.Send(ui.StartupFailedMsg{Err: err})
			errCh <- err
			return
		}
		close(started)
		errCh <- nil
	}()

	_, runErr := p.Run()

	// the session may only be torn down once startFunc is done with it
	select {
	case <-started:
		stopFunc()
	default:
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
