package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Keeper is the per-Component collection of named channels, plus
// references to the keepers owned by child Components. Aggregation walks
// this tree depth-first, prefixing each child's channel names with
// "childName." (§4.2 "Telemetry aggregation").
type Keeper struct {
	mu       sync.Mutex
	channels map[string]*Channel
	children map[string]*Keeper // keyed by child Component's local name
}

// NewKeeper creates an empty keeper.
func NewKeeper() *Keeper {
	return &Keeper{
		channels: make(map[string]*Channel),
		children: make(map[string]*Keeper),
	}
}

// Channel returns the named channel, creating it on first use. Channels
// are not predeclared: the projectors and the VCU create theirs (e.g.
// "pri_meas_volt", "vcu_state") through this call when they first append.
func (k *Keeper) Channel(name string) *Channel {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.channels[name]
	if !ok {
		ch = NewChannel(name)
		k.channels[name] = ch
	}
	return ch
}

// AdoptChild registers a child Component's keeper under its local name so
// aggregation descends into it. Re-registering the same name replaces the
// prior keeper (used when a VCU rebuilds its subtree on POWER_OFF).
func (k *Keeper) AdoptChild(name string, child *Keeper) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.children[name] = child
}

// DropChild removes a child keeper, e.g. when BRING_OFFLINE drops a
// subtree without rebuilding it.
func (k *Keeper) DropChild(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.children, name)
}

// Drain recursively drains this keeper and every descendant, returning
// every point with its name patched to the dotted path relative to this
// keeper (e.g. "donatello.psu.pri_meas_volt"). Every channel in the
// subtree is empty once Drain returns (§8 invariant).
func (k *Keeper) Drain() []Point {
	k.mu.Lock()
	names := make([]string, 0, len(k.channels))
	for name := range k.channels {
		names = append(names, name)
	}
	childNames := make([]string, 0, len(k.children))
	for name := range k.children {
		childNames = append(childNames, name)
	}
	channels := k.channels
	children := k.children
	k.mu.Unlock()

	var out []Point
	for _, name := range names {
		for _, p := range channels[name].Drain() {
			out = append(out, p.WithName(name))
		}
	}

	for _, childName := range childNames {
		child := children[childName]
		for _, p := range child.Drain() {
			out = append(out, p.WithName(childName+"."+p.Name))
		}
	}

	return out
}

// Snapshot groups a flat list of points by timestamp, returning buckets in
// ascending timestamp order (§4.4 "Ordering rule"). Point order within a
// bucket is unspecified.
type Snapshot struct {
	Times  []int64 // UnixNano keys, ascending
	Points map[int64][]Point
}

// GroupByTimestamp buckets points by their Timestamp (truncated to
// nanosecond Unix time) and returns ascending-ordered buckets.
func GroupByTimestamp(points []Point) Snapshot {
	buckets := make(map[int64][]Point)
	for _, p := range points {
		key := p.Timestamp.UnixNano()
		buckets[key] = append(buckets[key], p)
	}
	times := make([]int64, 0, len(buckets))
	for t := range buckets {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return Snapshot{Times: times, Points: buckets}
}

// Bucket is one timestamp's worth of points: the wire shape persisted one
// per log line (§6 "Persisted state"), pushed to the bounded telemetry
// queue, and pushed as one time-series message. Bucket, not Point, is the
// unit the core publishes across its boundary. Points share a Bucket only
// when they carry the same timestamp; each projector and each VCU stamps
// its points with its own time.Now(), so one cycle usually yields several
// Buckets (one per Component that reported), each taking its own slot in
// the bounded telemetry queue.
type Bucket struct {
	TimestampSeconds float64 `json:"timestamp"`
	Points           []Point `json:"points"`
}

// Buckets converts s into ascending-timestamp Bucket values.
func (s Snapshot) Buckets() []Bucket {
	out := make([]Bucket, 0, len(s.Times))
	for _, ts := range s.Times {
		out = append(out, Bucket{
			TimestampSeconds: float64(ts) / float64(time.Second),
			Points:           s.Points[ts],
		})
	}
	return out
}
