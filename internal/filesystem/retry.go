package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"media-catalog/internal/logging"
)

// unknownVolume labels paths outside every configured volume.
const unknownVolume = "unknown"

// Volume labels the files under Path in metrics.
type Volume struct {
	Name string
	Path string
}

// VolumeResolver maps file paths to volume labels by longest matching
// prefix, so a database directory inside a media root keeps its own label.
type VolumeResolver struct {
	// sorted by path length, longest first; every path ends in a separator
	volumes []Volume
}

// NewVolumeResolver creates a resolver. Several volumes may share a name,
// as every media root does.
func NewVolumeResolver(volumes ...Volume) *VolumeResolver {
	vr := &VolumeResolver{volumes: make([]Volume, 0, len(volumes))}
	for _, v := range volumes {
		vr.volumes = append(vr.volumes, Volume{Name: v.Name, Path: withSeparator(absPath(v.Path))})
	}
	slices.SortStableFunc(vr.volumes, func(a, b Volume) int {
		return len(b.Path) - len(a.Path)
	})
	return vr
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func withSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}

// Resolve returns the volume label of path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	p := withSeparator(absPath(path))
	for _, v := range vr.volumes {
		if strings.HasPrefix(p, v.Path) {
			return v.Name
		}
	}
	return unknownVolume
}

// defaultResolver is the package-level resolver set at startup
var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this operation.
	// If nil, the package-level default is used.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// resolveVolume returns the volume label for a path using the config's resolver
// or the package-level default.
func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	// Check for ESTALE (stale file handle) - errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// retry runs op until it succeeds, fails with an error other than ESTALE,
// or exhausts config.MaxRetries. Backoff doubles up to config.MaxBackoff.
func retry[T any](retryOp, path string, config RetryConfig, op func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	obs := observer
	backoff := config.InitialBackoff

	var (
		v        T
		err      error
		attempts int
	)
	for attempts < config.MaxRetries+1 {
		attempts++
		if v, err = op(); err == nil {
			if attempts > 1 {
				logging.Info("NFS %s succeeded on retry %d for %s", retryOp, attempts-1, path)
				obs.Retry(volume, retryOp, RetryRecovered)
			}
			break
		}

		// Only retry on NFS stale file handle errors
		if !isNFSStaleError(err) {
			break
		}
		obs.Retry(volume, retryOp, RetryStale)

		if attempts > config.MaxRetries {
			logging.Warn("NFS %s failed after %d retries for %s: %v", retryOp, config.MaxRetries, path, err)
			obs.Retry(volume, retryOp, RetryExhausted)
			break
		}

		obs.Retry(volume, retryOp, RetryAgain)
		logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
			retryOp, path, backoff, attempts, config.MaxRetries)
		time.Sleep(backoff)
		backoff = min(backoff*2, config.MaxBackoff)
	}

	obs.Finished(volume, retryOp, attempts, time.Since(start), err)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return retry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return retry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// ReadDirWithRetry performs os.ReadDir with retry logic for NFS stale file
// handle errors. Entries are sorted by file name.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	return retry("readdir", path, config, func() ([]os.DirEntry, error) {
		return os.ReadDir(path)
	})
}
