package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/config"
	"github.com/c360studio/semrec/event"
	"github.com/c360studio/semrec/recorder"
	"github.com/c360studio/semrec/sim"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semrec.dev/user"))

func recordCmd(flags *globalFlags) *cobra.Command {
	var (
		session  string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the demo scene",
		Long: `Record samples the built-in demo scene at the configured tick rate and
stores every snapshot and event until interrupted or until --duration
elapses. When a config file is given with --config, edits to its entity
filters apply to the running recording.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			logger := newLogger(flags.logLevel)

			cfg, err := loadConfig(flags, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if session != "" {
				cfg.Recorder.Session = session
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				var stop context.CancelFunc
				ctx, stop = context.WithTimeout(ctx, duration)
				defer stop()
			}
			return record(ctx, cfg, flags.configPath, logger)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Session name (overrides config)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = until interrupted)")
	return cmd
}

func record(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) error {
	b, err := openBackend(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	sink, err := b.sink(ctx, cfg, logger)
	if err != nil {
		return err
	}

	registry := codec.NewRegistryWithBuiltins()
	if err := sim.Register(registry); err != nil {
		return fmt.Errorf("register scene types: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rec, err := recorder.New(sink,
		recorder.WithTicksPerSecond(cfg.Recorder.TicksPerSecond),
		recorder.WithSessionName(cfg.Recorder.Session),
		recorder.WithFilters(cfg.Recorder.Include, cfg.Recorder.Exclude),
		recorder.WithRegistry(registry),
		recorder.WithQueueSize(cfg.Recorder.QueueSize),
		recorder.WithLogger(logger),
		recorder.WithRegisterer(metricsRegistry),
	)
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	rec.Start(ctx)

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, metricsRegistry, logger)
		defer stop()
	}

	if configPath != "" {
		stop, err := watchFilters(ctx, configPath, rec, logger)
		if err != nil {
			logger.Warn("Config hot reload disabled", "error", err)
		} else {
			defer stop()
		}
	}

	world, script := sim.Demo()
	driver := newDemoDriver(rec, world, script, logger)

	logger.Info("Semrec recording",
		"version", Version,
		"session", rec.SessionName(),
		"ticks_per_second", rec.TicksPerSecond())

	runErr := rec.Run(ctx, world, driver.step)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rec.Close(closeCtx); err != nil {
		logger.Error("Error closing session", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("Recording complete", "session", rec.Session())
	return runErr
}

// demoDriver advances the demo world ahead of every tick and turns contacts
// and scripted inputs into events.
type demoDriver struct {
	rec     *recorder.Recorder
	world   *sim.World
	script  *sim.Script
	logger  *slog.Logger
	elapsed time.Duration
	open    map[[2]uuid.UUID]*event.CollisionEvent
	users   map[string]*event.User
}

func newDemoDriver(rec *recorder.Recorder, world *sim.World, script *sim.Script, logger *slog.Logger) *demoDriver {
	return &demoDriver{
		rec:    rec,
		world:  world,
		script: script,
		logger: logger,
		open:   make(map[[2]uuid.UUID]*event.CollisionEvent),
		users:  make(map[string]*event.User),
	}
}

func (d *demoDriver) step(dt time.Duration) {
	d.elapsed += dt
	for _, c := range d.world.Step(dt) {
		key := [2]uuid.UUID{c.Sender, c.Receiver}
		if c.Began {
			ev := d.rec.Collision(c.Sender, c.Receiver)
			if err := d.rec.Begin(ev); err != nil {
				d.logger.Warn("Failed to begin collision", "error", err)
				continue
			}
			d.open[key] = ev
			continue
		}
		if ev, ok := d.open[key]; ok {
			delete(d.open, key)
			if err := d.rec.Complete(ev); err != nil {
				d.logger.Warn("Failed to complete collision", "error", err)
			}
		}
	}

	for _, in := range d.script.Due(d.elapsed) {
		if err := d.rec.Record(d.rec.Input(d.user(in.User), in.Action)); err != nil {
			d.logger.Warn("Failed to record input", "action", in.Action, "error", err)
		}
	}
}

func (d *demoDriver) user(name string) *event.User {
	u, ok := d.users[name]
	if !ok {
		u = &event.User{ID: uuid.NewSHA1(userNamespace, []byte(name)), Name: name}
		d.users[name] = u
	}
	return u
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// watchFilters applies entity filter edits from the config file to rec.
func watchFilters(ctx context.Context, path string, rec *recorder.Recorder, logger *slog.Logger) (func(), error) {
	w, err := config.NewWatcher(path, config.NewLoader(logger), 0, logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}

	go func() {
		for cfg := range w.Updates() {
			if err := rec.SetFilters(cfg.Recorder.Include, cfg.Recorder.Exclude); err != nil {
				logger.Warn("Ignoring filter change", "error", err)
			}
		}
	}()
	return func() { _ = w.Stop() }, nil
}
