// Package pinger implements the supervised connectivity probe loop each
// VCU runs against its remote endpoint (§4.5 "Pinger"). It is grounded on
// the teacher's task.statsCollectorLoop: a ticker-driven goroutine that
// tolerates a changing interval and exits cleanly on cancellation, here
// adapted from periodic metrics collection to periodic connectivity
// probing with a hard per-probe timeout.
package pinger

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/metrics"
)

// ProbeFunc performs one connectivity check against the remote endpoint,
// returning its uname string on success.
type ProbeFunc func(ctx context.Context) (uname string, err error)

// VersionFunc optionally fetches a version string once connectivity is
// confirmed. A nil VersionFunc leaves Snapshot.Version empty.
type VersionFunc func(ctx context.Context) (version string, err error)

const (
	cycleInterval = 500 * time.Millisecond
	probeTimeout  = 10 * time.Second
	snapshotKey   = "snapshot"
)

// Snapshot is the latched, single-writer/many-reader result of the most
// recent probe cycle.
type Snapshot struct {
	Connected bool
	Uname     string
	Version   string
	CheckedAt time.Time
	Err       error
}

// Pinger runs probe on a fixed cycle in its own goroutine and publishes
// the latest result through a cache so readers never block on the probe
// in flight (§4.5).
type Pinger struct {
	name      string
	probe     ProbeFunc
	version   VersionFunc
	log       *logrus.Entry
	snapshots *cache.Cache

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Pinger for name, using probe for connectivity checks and
// the optional version for the version string once connected.
func New(name string, probe ProbeFunc, version VersionFunc) *Pinger {
	return &Pinger{
		name:      name,
		probe:     probe,
		version:   version,
		log:       logrus.WithField("pinger", name),
		snapshots: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

// Start launches the probe loop. Calling Start on an already-running
// Pinger is a no-op.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop(ctx, p.stopCh, p.doneCh)
}

// Stop signals the probe loop to exit and waits for it to finish. Safe
// to call on a Pinger that was never started.
func (p *Pinger) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Snapshot returns the most recently latched probe result. Before the
// first probe completes, Connected is false and CheckedAt is zero.
func (p *Pinger) Snapshot() Snapshot {
	if v, ok := p.snapshots.Get(snapshotKey); ok {
		return v.(Snapshot)
	}
	return Snapshot{}
}

func (p *Pinger) loop(parent context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-parent.Done():
			return
		case <-ticker.C:
			p.runOnce(parent)
		}
	}
}

func (p *Pinger) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	start := time.Now()
	snap := Snapshot{CheckedAt: start}
	uname, err := p.probe(ctx)
	metrics.PingerProbeDurationSeconds.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		snap.Err = err
		p.log.WithError(err).Debug("probe failed")
		p.snapshots.Set(snapshotKey, snap, cache.NoExpiration)
		metrics.PingerConnected.WithLabelValues(p.name).Set(0)
		return
	}
	snap.Connected = true
	snap.Uname = uname
	metrics.PingerConnected.WithLabelValues(p.name).Set(1)

	if p.version != nil {
		if v, err := p.version(ctx); err == nil {
			snap.Version = v
		} else {
			p.log.WithError(err).Debug("version fetch failed")
		}
	}
	p.snapshots.Set(snapshotKey, snap, cache.NoExpiration)
}
