// Package memory keeps folder scans within the container's memory limit.
//
// The catalog lives in memory and large scans decode images, so a library
// of a few hundred thousand files can approach a container limit while a
// full rescan is running. This package handles that in two parts.
//
// # Go Memory Limit
//
// ConfigureFromEnv sets GOMEMLIMIT to a share of the container limit so the
// garbage collector works harder before the kernel steps in:
//
//	result := memory.ConfigureFromEnv()
//	if result.Configured {
//		logging.Info("memory limit from %s", result.Source)
//	}
//
// The limit is taken from, in order:
//
//   - GOMEMLIMIT, which the runtime has already applied
//   - MEMORY_LIMIT in bytes, typically from the Kubernetes Downward API
//   - the cgroup v2 memory.max file
//
// MEMORY_RATIO (default 0.85) sets the share given to the Go heap.
//
// # Scan Backpressure
//
// Monitor samples the heap every CheckInterval. At CriticalWaterMark it
// pauses scanning and forces a GC; below HighWaterMark scanning resumes.
// The catalog calls Wait before scanning each folder, so a paused monitor
// holds the scan workers without blocking searches:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//	state := index.New(db, extractor, index.Options{Throttle: monitor})
//
// Without a known limit the monitor never pauses.
//
// # Metrics
//
//   - media_catalog_memory_usage_ratio: heap allocation / limit
//   - media_catalog_memory_paused: 1 while scans are paused
//   - media_catalog_memory_gc_pauses_total: pauses triggered
package memory
