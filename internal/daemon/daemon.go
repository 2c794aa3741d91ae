// Package daemon wires the registry, scheduler, config watcher and metrics
// endpoint together from a loaded configuration.
package daemon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/gate"
	"github.com/raoulx24/tree-archiver/internal/logging"
	"github.com/raoulx24/tree-archiver/internal/logsink"
	"github.com/raoulx24/tree-archiver/internal/mailbox"
	"github.com/raoulx24/tree-archiver/internal/metrics"
	"github.com/raoulx24/tree-archiver/internal/registry"
	"github.com/raoulx24/tree-archiver/internal/scheduler"
	"github.com/raoulx24/tree-archiver/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

type Params struct {
	// ConfigPath is watched for changes when reloading is enabled.
	ConfigPath string
	Config     *config.Config
	Log        logging.Logger

	// Optional.
	Lister     gate.ProcessLister
	FS         fs.FS
	Clock      clock.Clock
	Prometheus *prometheus.Registry
}

type Daemon struct {
	mu      sync.Mutex
	cfg     *config.Config
	applied map[string]config.JobConfig

	path      string
	log       logging.Logger
	fs        fs.FS
	sink      logsink.Sink
	gate      *gate.Gate
	metrics   *metrics.Metrics
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	mb        *mailbox.Mailbox[*config.Config]
	watcher   *watcher.Watcher
}

// New builds every component and registers the configured jobs.
func New(p Params) (*Daemon, error) {
	if p.Config == nil {
		return nil, errors.NotValidf("nil config")
	}
	if p.Log == nil {
		p.Log = logging.Discard{}
	}
	if p.FS == nil {
		p.FS = fs.New().WithLogger(p.Log)
	}

	sink, err := logsink.Open(p.Config.Sink)
	if err != nil {
		return nil, errors.Trace(err)
	}

	d := &Daemon{
		cfg:     &config.Config{},
		applied: make(map[string]config.JobConfig),
		path:    p.ConfigPath,
		log:     p.Log,
		fs:      p.FS,
		sink:    sink,
		gate:    gate.New(p.Lister),
		metrics: metrics.New(p.Prometheus),
		mb:      mailbox.New[*config.Config](),
	}
	d.registry = registry.New(registry.Params{
		Log:          p.Log,
		Sink:         sink,
		Gate:         d.gate,
		Metrics:      d.metrics,
		Clock:        p.Clock,
		PriorityPoll: p.Config.Gate.PollInterval,
		LogTransfers: p.Config.Sink.LogTransfers,
	})
	d.scheduler = scheduler.New(d.registry, p.Log)
	if p.ConfigPath != "" {
		d.watcher = watcher.New(p.ConfigPath, p.Config.ConfigReload, p.Log, d.mb)
		if p.Clock != nil {
			d.watcher.WithClock(p.Clock)
		}
	}

	if err := d.Apply(p.Config); err != nil {
		return nil, errors.Trace(err)
	}
	return d, nil
}

func (d *Daemon) Registry() *registry.Registry { return d.registry }
func (d *Daemon) Sink() logsink.Sink           { return d.sink }
func (d *Daemon) Gate() *gate.Gate             { return d.gate }
func (d *Daemon) Metrics() *metrics.Metrics    { return d.metrics }

// Config returns the configuration currently applied.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run serves until ctx is done, then cancels running backups and waits for
// them to stop.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.scheduler.Run(gctx) })

	if cfg.ConfigReload.Enabled && d.watcher != nil {
		g.Go(func() error { return d.watcher.Start(gctx) })
		g.Go(func() error { return d.reloadLoop(gctx) })
	}

	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}

		g.Go(func() error {
			d.log.Info("metrics listening on %s", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return errors.Annotate(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	d.log.Info("daemon started with %d jobs", len(cfg.Jobs))
	err := g.Wait()
	d.registry.Close()
	d.log.Info("daemon stopped")
	return err
}

func (d *Daemon) reloadLoop(ctx context.Context) error {
	for {
		cfg, err := d.mb.Take(ctx)
		if err != nil {
			return nil
		}
		if err := d.Apply(cfg); err != nil {
			d.log.Error("applying reloaded config: %v", err)
			continue
		}
		d.log.Info("config reloaded")
	}
}
