package metrics

import (
	"time"

	"github.com/chronodb/nodecore/pkg/types"
)

// RoleSnapshot is the minimal information Collector needs about one
// deployed role to update the gauges in metrics.go.
type RoleSnapshot struct {
	Kind     types.RoleKind
	Deployed bool
	RefCount int32
}

// LogSnapshot mirrors logstore.Snapshot without importing pkg/logstore,
// which keeps metrics a leaf package free of logstore's bbolt and raft
// dependencies; Source implementations adapt their own snapshot type to
// this one.
type LogSnapshot struct {
	LastIndex   uint64
	CommitIndex uint64
}

// Source is implemented by whatever owns the node's live state (typically
// *dispatch.Node plus its log stores) and polled by Collector.
type Source interface {
	Roles() []RoleSnapshot
	LogStores() map[types.RoleKind]LogSnapshot
	OpenShowSessions() int
}

// Collector periodically samples a Source into the package-level gauges,
// the same ticker-driven poll loop the teacher's manager collector uses:
// collect once immediately on Start, then on every tick until Stop.
type Collector struct {
	source   Source
	interval time.Duration
	stopCh   chan struct{}
}

func NewCollector(source Source, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{source: source, interval: interval, stopCh: make(chan struct{})}
}

func (c *Collector) Start() {
	go func() {
		c.collect()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, r := range c.source.Roles() {
		deployed := 0.0
		if r.Deployed {
			deployed = 1.0
		}
		RoleDeployed.WithLabelValues(string(r.Kind)).Set(deployed)
		RoleRefCount.WithLabelValues(string(r.Kind)).Set(float64(r.RefCount))
	}

	for _, snap := range c.source.LogStores() {
		LogLastIndex.Set(float64(snap.LastIndex))
		LogCommitIndex.Set(float64(snap.CommitIndex))
	}

	ShowSessionsOpen.Set(float64(c.source.OpenShowSessions()))
}
