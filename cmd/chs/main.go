// Command chs runs the bounded-load consistent hashing scheduler.
//
// In simulate mode it drives the scheduler with a generated workload and
// reports the resulting load distribution. In serve mode it exposes the
// scheduler on NATS subjects. In agent mode it announces server addresses
// to the membership bucket a serving scheduler watches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/intake"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/config"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/heartbeat"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/kvutil"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/metrics"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/natsutil"
	"github.com/David-Tong/consistent-hashing-scheduler/membership"
	"github.com/David-Tong/consistent-hashing-scheduler/source"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
	"github.com/David-Tong/consistent-hashing-scheduler/workload"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewSlogWithOptions(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting chs", "mode", cfg.Mode, "config", *configPath)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("chs failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger types.Logger) error {
	if cfg.Mode == config.ModeAgent {
		return runAgent(ctx, cfg, logger)
	}

	sched, err := newScheduler(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch cfg.Mode {
	case config.ModeSimulate:
		return runSimulate(ctx, cfg, sched, logger)
	case config.ModeServe:
		return runServe(ctx, cfg, sched, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// newScheduler builds the scheduler from the configured server pool and,
// when enabled, starts the metrics endpoint for the lifetime of ctx.
func newScheduler(ctx context.Context, cfg *config.Config, logger types.Logger) (*chs.Scheduler, error) {
	addresses := cfg.Servers.Addresses
	if len(addresses) == 0 {
		addresses = source.Generate(cfg.Servers.Generate.Prefix, cfg.Servers.Generate.Count)
	}

	servers, err := source.NewStatic(addresses).ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	opts := []chs.Option{chs.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, chs.WithMetrics(metrics.NewPrometheus(reg, cfg.Metrics.Namespace)))

		srv := metrics.NewServer(cfg.Metrics.Addr, reg, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	sched, err := chs.NewScheduler(servers, &cfg.Scheduler, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return sched, nil
}

func runSimulate(ctx context.Context, cfg *config.Config, sched *chs.Scheduler, logger types.Logger) error {
	generator := workload.NewGenerator(newWeightGenerator(cfg), cfg.Workload.Seed)

	runner, err := workload.NewRunner(cfg.Workload.RunnerConfig, sched, generator, logger)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	logger.Info("workload finished",
		"scheduled", result.Scheduled,
		"failed", result.Failed,
		"weight", result.Weight,
		"duration", result.Duration,
	)

	report(sched, logger)

	return err
}

func newWeightGenerator(cfg *config.Config) workload.WeightGenerator {
	weights := cfg.Workload.Weights

	switch weights.Distribution {
	case config.WeightsUniform:
		return workload.NewUniformWeightGenerator(weights.Uniform)
	case config.WeightsExponential:
		exp := weights.Exponential
		return workload.NewExponentialWeightGenerator(exp.ExtremePercent, exp.ExtremeWeight, exp.NormalWeight)
	default:
		return workload.NewRandomWeightGenerator(weights.Max, cfg.Workload.Seed)
	}
}

// report logs the final load of every server and category ring.
func report(sched *chs.Scheduler, logger types.Logger) {
	stats := sched.Stats()
	logger.Info("load summary",
		"loadSum", stats.LoadSum,
		"servers", stats.ServerCount,
		"maxAssignedLoad", stats.MaxAssignedLoad,
		"boundLoadThreshold", stats.BoundLoadThreshold,
	)

	for _, srv := range sched.Servers() {
		logger.Info("server load", "server", srv.Address(), "load", srv.Load())
	}

	for _, ring := range sched.Rings() {
		logger.Info("ring", "name", ring.Name, "servers", ring.Servers, "virtualNodes", ring.Size)
	}
}

func runServe(ctx context.Context, cfg *config.Config, sched *chs.Scheduler, logger types.Logger) error {
	nc, shutdown, err := connectNATS(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	svc, err := intake.NewService(nc, sched, cfg.Intake, intake.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}

	if cfg.Membership.Enabled {
		kv, err := membershipBucket(ctx, nc, cfg)
		if err != nil {
			return err
		}

		watcher := membership.NewWatcher(kv, cfg.Membership.Prefix, cfg.Membership.TTL/2, sched, logger)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start membership watcher: %w", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	logger.Info("serving", "schedule", cfg.Intake.ScheduleSubject(), "url", nc.ConnectedUrl())

	<-ctx.Done()

	if err := svc.Stop(); err != nil {
		logger.Warn("intake stop failed", "error", err)
	}

	report(sched, logger)

	return nil
}

// connectNATS returns a connection and a func releasing everything it started.
func connectNATS(cfg *config.Config) (*nats.Conn, func(), error) {
	if cfg.NATS.Mode == config.NATSExternal {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		return nc, nc.Close, nil
	}

	ns, nc, err := natsutil.StartEmbedded(natsutil.EmbeddedOptions{
		Host:      cfg.NATS.Host,
		Port:      cfg.NATS.Port,
		JetStream: cfg.Intake.Journal || cfg.Membership.Enabled,
		StoreDir:  cfg.NATS.StoreDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded NATS: %w", err)
	}

	return nc, func() {
		nc.Close()
		ns.Shutdown()
	}, nil
}

func membershipBucket(ctx context.Context, nc *nats.Conn, cfg *config.Config) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.Membership.Bucket,
		Description: "chs server heartbeats",
		TTL:         cfg.Membership.TTL,
		History:     1,
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to open membership bucket: %w", err)
	}

	return kv, nil
}

// runAgent announces every configured address until ctx is done.
func runAgent(ctx context.Context, cfg *config.Config, logger types.Logger) error {
	nc, shutdown, err := connectNATS(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	kv, err := membershipBucket(ctx, nc, cfg)
	if err != nil {
		return err
	}

	publishers := make([]*heartbeat.Publisher, 0, len(cfg.Servers.Addresses))
	defer func() {
		for _, p := range publishers {
			if err := p.Stop(); err != nil {
				logger.Warn("failed to stop heartbeat", "server", p.Address(), "error", err)
			}
		}
	}()

	for _, addr := range cfg.Servers.Addresses {
		p := heartbeat.New(kv, cfg.Membership.Prefix, cfg.Membership.Interval)
		p.SetAddress(addr)
		p.SetLogger(logger)
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("failed to announce %s: %w", addr, err)
		}
		publishers = append(publishers, p)
		logger.Info("announcing server", "server", addr, "bucket", cfg.Membership.Bucket)
	}

	<-ctx.Done()

	return nil
}
