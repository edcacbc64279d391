package memory

import (
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"media-catalog/internal/logging"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. The rest covers ffmpeg, image decoding and sqlite's page cache.
	DefaultMemoryRatio = 0.85
)

// cgroupMemoryMax is the cgroup v2 limit file. A variable so tests can point
// it at a fixture.
var cgroupMemoryMax = "/sys/fs/cgroup/memory.max"

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source is "GOMEMLIMIT", "MEMORY_LIMIT", "cgroup" or "none".
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets the Go memory limit from the container limit.
// Call it before the catalog is loaded.
//
// Environment variables:
//   - GOMEMLIMIT: if set, the runtime already applied it and it wins
//   - MEMORY_LIMIT: container limit in bytes, e.g. from the Kubernetes Downward API
//   - MEMORY_RATIO: share of the limit for the Go heap (default: 0.85)
//
// Without MEMORY_LIMIT the cgroup v2 limit is used when one is set.
func ConfigureFromEnv() ConfigResult {
	result := ConfigResult{Source: "none"}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < 1<<62 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimit, source := containerLimit()
	if memLimit <= 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT will not be configured automatically")
		return result
	}
	result.ContainerLimit = memLimit

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsedRatio, err := strconv.ParseFloat(ratioStr, 64); err == nil {
			if parsedRatio > 0 && parsedRatio <= 1.0 {
				ratio = parsedRatio
			} else {
				logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
			}
		} else {
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		}
	}
	result.Ratio = ratio

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = source
	result.GoMemLimit = goMemLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s %s limit)",
		humanize.IBytes(uint64(goMemLimit)), ratio*100, humanize.IBytes(uint64(memLimit)), source)
	return result
}

// containerLimit returns the container memory limit and where it came from.
func containerLimit() (int64, string) {
	if memLimitStr := os.Getenv("MEMORY_LIMIT"); memLimitStr != "" {
		memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
		if err != nil || memLimit <= 0 {
			logging.Warn("Invalid MEMORY_LIMIT %q, ignoring", memLimitStr)
			return 0, ""
		}
		return memLimit, "MEMORY_LIMIT"
	}

	data, err := os.ReadFile(cgroupMemoryMax)
	if err != nil {
		return 0, ""
	}
	text := strings.TrimSpace(string(data))
	if text == "" || text == "max" {
		return 0, ""
	}
	memLimit, err := strconv.ParseInt(text, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Debug("Unreadable cgroup memory limit %q", text)
		return 0, ""
	}
	return memLimit, "cgroup"
}
