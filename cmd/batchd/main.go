package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"batchd/internal/config"
	"batchd/internal/httpapi"
	"batchd/internal/registry"
	"batchd/internal/wlm"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath  string
		addr     string
		store    string
		qsize    int
		gpus     int
		debug    bool
		respTO   int
		snapPath string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "batchd",
		Short:         "Per-model job admission and batching daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			// Flags override file values when set explicitly.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("model-store") || cfg.ModelStore == "" {
				cfg.ModelStore = store
			}
			if cmd.Flags().Changed("queue-size") || cfg.JobQueueSize == 0 {
				cfg.JobQueueSize = qsize
			}
			if cmd.Flags().Changed("gpus") {
				cfg.NumberOfGPU = gpus
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if cmd.Flags().Changed("response-timeout") || cfg.ResponseTimeoutS == 0 {
				cfg.ResponseTimeoutS = respTO
			}
			if cmd.Flags().Changed("snapshot-path") {
				cfg.SnapshotPath = snapPath
			}
			return run(cfg, logLevel)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "Config file (.toml/.yaml/.json); flags override it")
	root.Flags().StringVar(&addr, "addr", ":8081", "HTTP listen address")
	root.Flags().StringVar(&store, "model-store", "./model-store", "Directory of model archive manifests (*.yaml)")
	root.Flags().IntVar(&qsize, "queue-size", 100, "Default per-model data queue capacity")
	root.Flags().IntVar(&gpus, "gpus", 0, "Number of GPUs visible to this process")
	root.Flags().BoolVar(&debug, "debug", false, "Debug mode (disables worker response timeouts)")
	root.Flags().IntVar(&respTO, "response-timeout", 120, "Default worker response timeout in seconds")
	root.Flags().StringVar(&snapPath, "snapshot-path", "", "Model-state snapshot file (empty disables persistence)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	return root
}

func run(cfg config.Config, logLevel string) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	archives, err := registry.LoadDir(cfg.ModelStore)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.ModelStore).Msg("failed to load model store")
		return err
	}

	mgr := wlm.NewManager(wlm.ManagerConfig{
		JobQueueSize:     cfg.JobQueueSize,
		GPUCount:         cfg.NumberOfGPU,
		Debug:            cfg.Debug,
		ResponseTimeoutS: cfg.ResponseTimeoutS,
		SnapshotPath:     cfg.SnapshotPath,
		Logger:           logger,
	})
	for _, a := range archives {
		if _, err := mgr.Register(a); err != nil {
			logger.Error().Err(err).Str("model", a.ModelName).Msg("failed to register model")
			return err
		}
	}
	if err := mgr.RestoreSnapshot(); err != nil {
		logger.Warn().Err(err).Msg("failed to restore model-state snapshot")
	}

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model_store", cfg.ModelStore).Int("models", len(archives)).Msg("batchd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.SaveSnapshot(); err != nil {
		logger.Warn().Err(err).Msg("failed to save model-state snapshot")
	}
	return nil
}
