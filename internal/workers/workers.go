package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "SCAN_WORKERS"

// MaxScanWorkers caps parallel folder scans. Directory reads on network
// mounts stop scaling well before this.
const MaxScanWorkers = 16

// Count returns the worker count for a task with the given per-CPU
// multiplier, capped by limit (0 means no cap). GOMAXPROCS already reflects
// container CPU limits. A positive SCAN_WORKERS value wins over the
// computed count but is still capped.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForScan sizes the folder scan pool. A positive configured value is used
// as is; otherwise scans are treated as mixed work, since they combine
// directory reads with metadata decoding.
func ForScan(configured int) int {
	if configured > 0 {
		return capAt(configured, MaxScanWorkers)
	}
	return ForMixed(MaxScanWorkers)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
