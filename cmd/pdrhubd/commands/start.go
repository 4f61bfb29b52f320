package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/pdrhub/internal/config"
	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/internal/telemetry"
	"github.com/marmos91/pdrhub/pkg/debugapi"
	"github.com/marmos91/pdrhub/pkg/eventhandler"
	"github.com/marmos91/pdrhub/pkg/fetcher"
	"github.com/marmos91/pdrhub/pkg/manager"
	"github.com/marmos91/pdrhub/pkg/pdr"
	"github.com/marmos91/pdrhub/pkg/provisioning"
	"github.com/marmos91/pdrhub/pkg/transport"
	"github.com/marmos91/pdrhub/pkg/transport/fake"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pdrhub daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd.Context())
	},
}

func runStart(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "pdrhub",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", logger.KeyError, err.Error())
		}
	}()

	stopProfiling, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "pdrhub",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("initializing profiling: %w", err)
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("profiler shutdown failed", logger.KeyError, err.Error())
		}
	}()

	registry := prometheus.NewRegistry()

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return err
	}
	repo.SetMetrics(pdr.NewMetrics(registry))
	info := repo.GetRepositoryInfo()
	logger.Info("repository ready",
		logger.KeyRecordCount, info.RecordCount,
		logger.KeyRepositorySize, info.RepositorySize,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Provisioning.Watch {
		fw, err := provisioning.NewFileWatcher(cfg.Provisioning.ImagePath, repo)
		if err != nil {
			return err
		}
		defer fw.Close()
		go fw.Run(runCtx)
	}

	mgr, events := buildManager(runCtx, cfg, repo, registry)

	if cfg.Metrics.Enabled {
		metricsSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			logger.Info("metrics listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.KeyError, err.Error())
			}
		}()
		defer metricsSrv.Close()
	}

	var debugSrv *debugapi.Server
	if cfg.DebugAPI.Enabled {
		debugSrv = debugapi.New(repo, mgr, events, registry, debugapi.Config{
			Port:         cfg.DebugAPI.Port,
			ReadTimeout:  cfg.DebugAPI.ReadTimeout,
			WriteTimeout: cfg.DebugAPI.WriteTimeout,
		})
		go func() {
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("debug API server failed", logger.KeyError, err.Error())
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if debugSrv != nil {
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("debug API shutdown failed", logger.KeyError, err.Error())
		}
	}
	return nil
}

// buildRepository creates the local repository, seeded from a
// provisioned image when one is configured.
func buildRepository(ctx context.Context, cfg *config.Config) (*pdr.Repository, error) {
	repoCfg := pdr.Config{
		BlobCapacity:      cfg.Repository.BlobCapacity,
		MaxRecords:        cfg.Repository.MaxRecords,
		TransferChunkSize: cfg.Repository.TransferChunkSize,
	}

	switch {
	case cfg.Provisioning.S3.Enabled:
		loader, err := provisioning.NewS3ImageLoaderFromConfig(ctx, provisioning.S3Config{
			Bucket:   cfg.Provisioning.S3.Bucket,
			Key:      cfg.Provisioning.S3.Key,
			Region:   cfg.Provisioning.S3.Region,
			Endpoint: cfg.Provisioning.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		image, err := loader.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		repo, count, err := provisioning.BindImage(repoCfg, image)
		if err != nil {
			return nil, err
		}
		logger.Info("seeded repository from S3 image",
			logger.KeyBucket, cfg.Provisioning.S3.Bucket,
			logger.KeyKey, cfg.Provisioning.S3.Key,
			logger.KeyRecordCount, count,
		)
		return repo, nil

	case cfg.Provisioning.ImagePath != "":
		image, err := os.ReadFile(cfg.Provisioning.ImagePath)
		if err != nil {
			if os.IsNotExist(err) && cfg.Provisioning.Watch {
				// The watched image may appear later; start empty.
				logger.Warn("image file not present yet, starting empty",
					logger.KeyPath, cfg.Provisioning.ImagePath)
				return pdr.New(repoCfg), nil
			}
			return nil, fmt.Errorf("reading image file: %w", err)
		}
		repo, count, err := provisioning.BindImage(repoCfg, image)
		if err != nil {
			return nil, err
		}
		logger.Info("seeded repository from image file",
			logger.KeyPath, cfg.Provisioning.ImagePath,
			logger.KeyRecordCount, count,
		)
		return repo, nil

	default:
		return pdr.New(repoCfg), nil
	}
}

// buildManager wires the multi-terminus manager and event handler when
// termini are configured. The daemon binary carries no MCTP binding, so
// it talks to in-process simulated termini over the loopback transport;
// production integrators embed the manager with their own transport.
func buildManager(ctx context.Context, cfg *config.Config, repo *pdr.Repository, registry *prometheus.Registry) (*manager.Manager, *eventhandler.Handler) {
	if len(cfg.Manager.Termini) == 0 {
		return nil, nil
	}

	logger.Warn("no MCTP binding in this build, using in-process simulated termini")

	bus := devBus{peers: map[uint8]transport.Transport{}}
	for _, t := range cfg.Manager.Termini {
		bus.peers[t.EID] = fake.New(pdr.New(pdr.Config{}))
	}

	f := fetcher.New(bus, fetcher.Config{
		TransferChunkSize:  uint16(cfg.Repository.TransferChunkSize),
		ReassemblyCapacity: cfg.Manager.ReassemblyCapacity,
	})
	f.SetMetrics(fetcher.NewMetrics(registry))

	mgr := manager.New(repo, f, manager.Config{
		MaxTermini:          cfg.Manager.MaxTermini,
		ReassemblyCapacity:  cfg.Manager.ReassemblyCapacity,
		MaxHandleMapEntries: cfg.Repository.MaxRecords,
	})
	mgr.SetMetrics(manager.NewMetrics(registry))

	for _, t := range cfg.Manager.Termini {
		if err := mgr.AddTerminus(t.EID, t.TerminusHandle, t.TID); err != nil {
			logger.Warn("could not register terminus",
				logger.KeyEID, t.EID, logger.KeyError, err.Error())
		}
	}

	if err := mgr.SyncAll(ctx); err != nil {
		logger.Warn("initial sync incomplete, termini remain in error state",
			logger.KeyError, err.Error())
	}

	events := eventhandler.New(mgr)
	events.SetMetrics(eventhandler.NewMetrics(registry))
	return mgr, events
}

// devBus routes SendRecv calls to per-endpoint in-process termini.
type devBus struct {
	peers map[uint8]transport.Transport
}

func (b devBus) SendRecv(ctx context.Context, eid uint8, command transport.Command, payload []byte) (transport.CompletionCode, []byte, error) {
	peer, ok := b.peers[eid]
	if !ok {
		return 0, nil, fmt.Errorf("no route to endpoint %d", eid)
	}
	return peer.SendRecv(ctx, eid, command, payload)
}
