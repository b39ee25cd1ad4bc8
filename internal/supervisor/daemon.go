// Package supervisor runs the reloadconf poll loop, tying the swap
// engine and the process supervisor together.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/reloadconf/reloadconf/internal/config"
	"github.com/reloadconf/reloadconf/internal/fileperm"
	"github.com/reloadconf/reloadconf/internal/metrics"
	"github.com/reloadconf/reloadconf/internal/process"
	"github.com/reloadconf/reloadconf/internal/readiness"
	"github.com/reloadconf/reloadconf/internal/swap"
	"github.com/reloadconf/reloadconf/internal/watch"
)

// Daemon is the reloadconf instance: one watch directory, one config
// set, one supervised command.
type Daemon struct {
	cfg     *config.Config
	engine  *swap.Engine
	proc    *process.Supervisor
	gate    readiness.Gate
	metrics *metrics.Collector
	logger  *slog.Logger

	pollInterval time.Duration
	startedAt    time.Time
}

// Option overrides a collaborator, used by tests.
type Option func(*options)

type options struct {
	spawner  process.Spawner
	runner   process.Runner
	lister   watch.Lister
	resolver fileperm.NameResolver
}

// WithSpawner overrides the process spawner.
func WithSpawner(s process.Spawner) Option { return func(o *options) { o.spawner = s } }

// WithRunner overrides the test/reload command runner.
func WithRunner(r process.Runner) Option { return func(o *options) { o.runner = r } }

// WithLister overrides the watch directory enumerator.
func WithLister(l watch.Lister) Option { return func(o *options) { o.lister = l } }

// WithNameResolver overrides the user/group name resolver.
func WithNameResolver(r fileperm.NameResolver) Option {
	return func(o *options) { o.resolver = r }
}

// New validates the configuration, resolves permissions, prepares the
// watch directory and wires up all components. Any error here is fatal:
// the daemon must not run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	o := options{
		spawner:  &process.ExecSpawner{},
		runner:   process.ExecRunner{},
		resolver: fileperm.OSResolver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	perms, err := fileperm.Resolve(cfg.Reload.Chown, cfg.Reload.Chmod, o.resolver)
	if err != nil {
		return nil, err
	}

	if err := ensureWatchDir(cfg.Reload.Watch, perms, logger); err != nil {
		return nil, err
	}

	lister := o.lister
	if lister == nil {
		if cfg.Supervisor.UseNotify {
			nl, err := watch.NewNotifyLister(cfg.Reload.Watch)
			if err != nil {
				return nil, fmt.Errorf("cannot watch %s: %w", cfg.Reload.Watch, err)
			}
			lister = nl
		} else {
			lister = watch.PollLister{Dir: cfg.Reload.Watch}
		}
	}

	proc := process.NewSupervisor(cfg.Reload.Command, cfg.Reload.ReloadCommand, o.spawner, o.runner, logger)

	engine := swap.NewEngine(swap.EngineConfig{
		WatchDir:       cfg.Reload.Watch,
		Config:         cfg.Reload.Config,
		TestCommand:    cfg.Reload.TestCommand,
		Lister:         lister,
		Runner:         o.runner,
		Perms:          perms,
		SettleInterval: time.Duration(cfg.Supervisor.SettleInterval) * time.Second,
		SettleRetries:  cfg.Supervisor.SettleRetries,
		Logger:         logger,
	})

	return &Daemon{
		cfg:    cfg,
		engine: engine,
		proc:   proc,
		gate: readiness.Gate{
			Path:    cfg.Reload.WaitForPath,
			Addr:    cfg.Reload.WaitForSock,
			Timeout: time.Duration(cfg.Reload.WaitTimeout) * time.Second,
		},
		metrics:      metrics.New(),
		logger:       logger,
		pollInterval: time.Duration(cfg.Supervisor.PollInterval) * time.Second,
	}, nil
}

// Metrics returns the daemon's metrics collector.
func (d *Daemon) Metrics() *metrics.Collector { return d.metrics }

// ensureWatchDir creates the watch directory if absent, applying the
// resolved ownership and mode non-fatally. A watch path that exists as a
// regular file is refused.
func ensureWatchDir(dir string, perms *fileperm.Perms, logger *slog.Logger) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("watch path %s is a file", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat watch dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	if err := perms.Apply(dir); err != nil {
		logger.Warn("could not apply permissions to watch dir", "dir", dir, "error", err)
	}
	return nil
}

// Run blocks until the context is canceled. The readiness gate runs
// once up front; a gate timeout is fatal. After that the daemon never
// exits on a config or test failure.
func (d *Daemon) Run(ctx context.Context) error {
	if err := WritePIDFile(d.cfg.Supervisor.PIDFile); err != nil {
		return err
	}
	defer RemovePIDFile(d.cfg.Supervisor.PIDFile)

	if err := d.gate.Wait(ctx); err != nil {
		return err
	}

	stopMetrics, err := d.serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	d.startedAt = time.Now()
	d.logger.Info("monitoring",
		"watch", d.cfg.Reload.Watch,
		"command", d.cfg.Reload.Command,
		"config", d.cfg.Reload.Config)

	for {
		if err := d.Cycle(); err != nil {
			d.logger.Error("poll cycle failed", "error", err)
			d.metrics.IncCycleError()
		}
		d.metrics.SetSupervisorUptime(time.Since(d.startedAt).Seconds())

		select {
		case <-ctx.Done():
			d.logger.Info("shutting down")
			d.proc.Terminate()
			return nil
		case <-time.After(d.pollInterval):
		}
	}
}

// Cycle runs one poll iteration: detect and apply a candidate batch, or,
// when there is none, restart the supervised command if it died and the
// installed configuration still tests valid.
func (d *Daemon) Cycle() error {
	defer func() {
		d.metrics.SetProcessUp(d.proc.Alive())
	}()

	candidates, err := d.engine.Detect()
	if err != nil {
		return err
	}

	if len(candidates) > 0 {
		return d.applyBatch(candidates)
	}

	if !d.proc.Alive() {
		if !d.engine.TestCurrent() {
			// Stay inert until a valid configuration appears.
			return nil
		}
		d.logger.Debug("command not running and valid configuration found")
		if err := d.proc.Start(); err != nil {
			return err
		}
		d.metrics.IncProcessStart()
	}
	return nil
}

func (d *Daemon) applyBatch(candidates []string) error {
	d.logger.Info("new configuration found", "files", candidates)

	res := d.engine.Apply(candidates)
	d.metrics.IncSwap(res.Outcome.String())

	if res.Outcome == swap.RolledBack {
		d.metrics.IncRollback(res.Stage)
		d.logger.Warn("configuration rejected", "stage", res.Stage, "reason", res.Reason)
		return nil
	}

	method, err := d.proc.Reload()
	if err != nil {
		return err
	}
	d.metrics.IncProcessReload(string(method))
	if method == process.ReloadRestart {
		d.metrics.IncProcessStart()
	}
	return nil
}

// serveMetrics starts the /metrics listener when configured. The
// returned func stops it.
func (d *Daemon) serveMetrics() (func(), error) {
	addr := d.cfg.Supervisor.MetricsListen
	if addr == "" {
		return func() {}, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	srv := &http.Server{Handler: mux}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.Error("metrics server failed", "error", err)
		}
	}()
	d.logger.Info("metrics listening", "addr", ln.Addr().String())

	return func() { _ = srv.Close() }, nil
}
