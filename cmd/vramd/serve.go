package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vramd/internal/config"
	"vramd/internal/httpapi"
	"vramd/internal/logger"
	"vramd/internal/manager"
	"vramd/internal/metrics"
	"vramd/internal/natspub"
	"vramd/internal/observability"
	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/internal/telemetry"
	"vramd/pkg/types"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	addr        string
	registry    string
	totalVRAMMB int
	corsOrigins string
	mockGPU     bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and its HTTP API",
		Example: "  vramd serve --config /etc/vramd/config.yaml\n" +
			"  VRAMD_OLLAMA_URL=http://gpu:11434 vramd serve --registry models.yaml --mock-gpu",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = config.Discover()
			}
			cfg, err := config.Resolve(path)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, f, root, &cfg)
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address, e.g. :8099")
	cmd.Flags().StringVar(&f.registry, "registry", "", "Model registry YAML file")
	cmd.Flags().IntVar(&f.totalVRAMMB, "total-vram-mb", 0, "Override the device size in MB")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")
	cmd.Flags().BoolVar(&f.mockGPU, "mock-gpu", false, "Do not query nvidia-smi; report a mock device")
	return cmd
}

// applyServeFlags layers explicitly set flags over the resolved config.
func applyServeFlags(cmd *cobra.Command, f *serveFlags, root *rootOptions, cfg *config.Config) {
	if cmd.Flags().Changed("addr") {
		cfg.Addr = f.addr
	}
	if cmd.Flags().Changed("registry") {
		cfg.RegistryPath = f.registry
	}
	if cmd.Flags().Changed("total-vram-mb") {
		cfg.TotalVRAMMB = f.totalVRAMMB
	}
	if origins := splitCSV(f.corsOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = origins
	}
	if f.mockGPU {
		cfg.NvidiaSMI = "mock"
	}
	if root.logLevel != "" {
		cfg.LogLevel = root.logLevel
	}
}

func overrides(cfg config.Config) types.Thresholds {
	return types.Thresholds{
		WarningPercent:     cfg.WarningPercent,
		CriticalPercent:    cfg.CriticalPercent,
		IdleTimeoutSeconds: cfg.IdleTimeoutSeconds,
		TotalVRAMMB:        cfg.TotalVRAMMB,
	}
}

func newCollector(cfg config.Config) telemetry.Collector {
	if cfg.NvidiaSMI == "mock" {
		return nil
	}
	return telemetry.NvidiaSMI{Path: cfg.NvidiaSMI}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		ServiceName: "vramd",
		Version:     version,
		Endpoint:    cfg.OTLPEndpoint,
		Headers:     cfg.OTLPHeaders,
	}, log)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store := registry.NewStore(cfg.RegistryPath)
	logRegistry(log, store.Current())

	poller := telemetry.NewPoller(telemetry.PollerConfig{
		Collector:       newCollector(cfg),
		FallbackTotalMB: cfg.FallbackVRAMMB,
		Interval:        cfg.TelemetryInterval(),
		Logger:          log,
	})
	poller.Refresh(ctx)

	adapters := provider.FromEndpoints(provider.Endpoints{
		Ollama: cfg.OllamaURL,
		VLLM:   cfg.VLLMURL,
		TTS:    cfg.TTSURL,
	}, cfg.OpTimeout())
	if len(adapters) == 0 {
		log.Warn().Msg("no provider endpoints configured; every load will be rejected")
	}

	exporter := metrics.NewExporter()
	pubs := manager.MultiPublisher{exporter}

	var (
		nc  *nats.Conn
		pub *natspub.Publisher
	)
	if cfg.NATSURL != "" {
		nc, err = natspub.Connect(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
		pub = natspub.NewPublisher(nc, cfg.SubjectPrefix, log)
		pubs = append(pubs, pub)
	}

	cur := store.Current()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:         cur.Registry,
		RegistryDegraded: cur.Degraded,
		Adapters:         adapters,
		Telemetry:        poller,
		Publisher:        pubs,
		Logger:           log,
		Overrides:        overrides(cfg),
		SystemReserveMB:  cfg.SystemReserveMB,
		TotalVRAMMB:      cfg.FallbackVRAMMB,
		MaxQueueDepth:    cfg.MaxQueueDepth,
		OpTimeout:        cfg.OpTimeout(),
		EvictActive:      cfg.EvictActive,
	})
	store.Subscribe(func(r registry.Result) {
		logRegistry(log, r)
		mgr.SetRegistry(r.Registry, r.Degraded)
	})
	mgr.Start(ctx)
	defer mgr.Close()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetWaitTimeout(cfg.OpTimeout() * 2)
	httpapi.SetStatusInterval(cfg.StatusInterval())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, nil, nil)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(httpapi.Deps{Service: mgr, Registry: store, Telemetry: poller}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return mgr.RunIdleSweeper(gctx, cfg.OptimizeInterval()) })
	g.Go(func() error { return exporter.Run(gctx, cfg.StatusInterval(), mgr.Status) })
	if pub != nil {
		g.Go(func() error { return pub.Run(gctx) })
		g.Go(func() error { return natspub.NewBroadcaster(pub, mgr, cfg.StatusInterval()).Run(gctx) })
	}
	if cfg.WatchRegistry && cfg.RegistryPath != "" {
		g.Go(func() error {
			if err := registry.Watch(gctx, cfg.RegistryPath, log, store.Set); err != nil {
				// a missing directory is not fatal; reload stays available over HTTP
				log.Warn().Err(err).Msg("registry watch disabled")
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("registry", cfg.RegistryPath).Msg("vramd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("shutting down")
	return err
}

func logRegistry(log zerolog.Logger, r registry.Result) {
	if r.Degraded {
		log.Warn().Str("path", r.Path).Str("reason", r.Reason).Msg("registry degraded, using built-in defaults")
		return
	}
	for _, w := range r.Warnings {
		log.Warn().Str("path", r.Path).Msg(w)
	}
	log.Info().Str("path", r.Path).Int("models", len(r.Registry.Definitions())).Msg("registry loaded")
}
