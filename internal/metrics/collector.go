package metrics

import (
	"sync"
	"time"

	"media-catalog/internal/logging"
)

// StatsProvider reports catalog totals for the gauges.
type StatsProvider interface {
	GetStats() Stats
}

// Stats are the catalog totals published by the Collector.
type Stats struct {
	// FilesByType counts files per media type ("image", "video", ...).
	FilesByType     map[string]int
	Folders         int
	Tags            int
	DuplicateGroups int
	PendingWrites   int
}

// Files returns the number of files of every type.
func (s Stats) Files() int {
	n := 0
	for _, c := range s.FilesByType {
		n += c
	}
	return n
}

// Collector copies catalog totals into gauges on an interval.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a collector. Call Start to begin collecting.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start collects once and then on every interval until Stop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends collection. It may be called more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}
	stats := c.statsProvider.GetStats()

	// Types missing from this summary drop to zero rather than keep a stale value.
	CatalogFilesTotal.Reset()
	for ft, n := range stats.FilesByType {
		CatalogFilesTotal.WithLabelValues(ft).Set(float64(n))
	}
	CatalogFoldersTotal.Set(float64(stats.Folders))
	CatalogTagsTotal.Set(float64(stats.Tags))
	CatalogDuplicateGroups.Set(float64(stats.DuplicateGroups))
	WriteQueueDepth.Set(float64(stats.PendingWrites))

	logging.Debug("Metrics collected: files=%d, folders=%d, tags=%d, pending writes=%d",
		stats.Files(), stats.Folders, stats.Tags, stats.PendingWrites)
}
