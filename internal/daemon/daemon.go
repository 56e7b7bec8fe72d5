// Package daemon wires every other internal package into one runnable
// supervisor process (§1 OVERVIEW, §4.6 cycle, §6 ingress/configuration).
// It is grounded on the teacher's daemon.Run(): load config, build the
// long-lived objects once, start them, block on a signal, and tear
// everything down in reverse order.
package daemon

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/config"
	"icc.tech/hil-supervisor/internal/cycle"
	"icc.tech/hil-supervisor/internal/ingress/cmdsocket"
	"icc.tech/hil-supervisor/internal/ingress/telemetryhttp"
	logpkg "icc.tech/hil-supervisor/internal/log"
	"icc.tech/hil-supervisor/internal/metrics"
	"icc.tech/hil-supervisor/internal/pinger"
	"icc.tech/hil-supervisor/internal/queue"
	"icc.tech/hil-supervisor/internal/sink/logfile"
	"icc.tech/hil-supervisor/internal/sink/timeseries"
	"icc.tech/hil-supervisor/internal/telemetry"
)

// ioCloser is the common shape of every telemetry sink's teardown
// (logfile.Sink, timeseries.Sink); named locally so the daemon doesn't
// need to import io for this one method.
type ioCloser interface {
	Close() error
}

// Daemon owns every long-lived object the supervisor process starts.
type Daemon struct {
	cfg *config.Config
	log *logrus.Entry

	engine     *cycle.Engine
	cmdSrv     *cmdsocket.Server
	telemSrv   *telemetryhttp.Server
	metricsSrv *metrics.Server
	pingers    []*pinger.Pinger
	closers    []ioCloser
}

// New loads path and builds every Component tree, sink and ingress
// server the configuration describes, but starts nothing yet.
func New(path string) (*Daemon, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logpkg.Init(&cfg.Log)
	log := logrus.WithField("component", "daemon")

	root := component.New("root", component.KindRoot)
	ctx := context.Background()

	var pingers []*pinger.Pinger
	for name, vcfg := range cfg.VCUs {
		vcuComp, vp, err := buildVCU(ctx, name, vcfg)
		if err != nil {
			return nil, fmt.Errorf("daemon: build vcu %s: %w", name, err)
		}
		root.AdoptChild(name, vcuComp)
		pingers = append(pingers, vp...)
	}

	tree := component.NewTree(root)
	commands := queue.NewCommandQueue[component.Command]()
	telemetryQueue := queue.NewTelemetryQueue[telemetry.Bucket](queue.DefaultTelemetryCapacity)

	var sinks []cycle.Sink
	var closers []ioCloser

	logSink := logfile.New(logfile.Config{
		Path:       cfg.TelemetryLog.Path,
		MaxSizeMB:  cfg.TelemetryLog.MaxSizeMB,
		MaxBackups: cfg.TelemetryLog.MaxBackups,
		MaxAgeDays: cfg.TelemetryLog.MaxAgeDays,
		Compress:   cfg.TelemetryLog.Compress,
	})
	sinks = append(sinks, logSink)
	closers = append(closers, logSink)

	if cfg.TimeSeries.Enabled {
		tsSink := timeseries.New(timeseries.Config{
			Brokers: cfg.TimeSeries.Brokers,
			Topic:   cfg.TimeSeries.Topic,
		})
		sinks = append(sinks, tsSink)
		closers = append(closers, tsSink)
	}

	engine := cycle.New(tree, commands, telemetryQueue, sinks, cfg.CyclePeriod)

	d := &Daemon{
		cfg:        cfg,
		log:        log,
		engine:     engine,
		cmdSrv:     cmdsocket.New(cfg.CommandAddr, commands),
		telemSrv:   telemetryhttp.New(cfg.TelemetryAddr, telemetryQueue),
		metricsSrv: metrics.NewServer(cfg.MetricsAddr, "/metrics"),
		pingers:    pingers,
		closers:    closers,
	}
	return d, nil
}

// Run starts the ingress servers, the metrics server and the cycle engine
// and blocks until ctx is cancelled or a SIGINT/SIGTERM arrives, then
// shuts everything down in the reverse of startup order. Pingers are not
// started here: every VCU starts in power_off, and a VCU starts its own
// pinger when it is enabled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.cmdSrv.Start(ctx); err != nil {
			errCh <- fmt.Errorf("command socket: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.telemSrv.Start(ctx); err != nil {
			errCh <- fmt.Errorf("telemetry http: %w", err)
		}
	}()

	if err := d.metricsSrv.Start(ctx); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.engine.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("cycle engine: %w", err)
		}
	}()

	d.log.Info("supervisor started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		d.log.WithError(err).Error("component failed, shutting down")
		stop()
	}

	wg.Wait()
	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	shutdownCtx := context.Background()
	for _, pg := range d.pingers {
		pg.Stop()
	}
	if err := d.metricsSrv.Stop(shutdownCtx); err != nil {
		d.log.WithError(err).Warn("metrics server shutdown")
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.log.WithError(err).Warn("sink close failed")
		}
	}
	d.log.Info("supervisor stopped")
	return nil
}

// RunUntilSignal is the convenience entrypoint cmd/ calls: build and run
// a Daemon from path, returning once os.Interrupt or SIGTERM is handled.
func RunUntilSignal(path string) error {
	d, err := New(path)
	if err != nil {
		return err
	}
	return d.Run(context.Background())
}
