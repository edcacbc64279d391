package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/logging"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultPort          = "8080"
	DefaultIndexInterval = 30 * time.Minute
	DefaultFlushInterval = 5 * time.Second
	DefaultThumbnailSize = 256
	DefaultLogFileMaxMB  = 50
	configFileName       = "catalog.toml"
	databaseFileName     = "catalog.db"
)

// Config holds all application configuration
type Config struct {
	MediaDirs          []string
	DatabaseDir        string
	Port               string
	IndexInterval      time.Duration
	FlushInterval      time.Duration
	ScanWorkers        int
	ExtractMetadata    bool
	GenerateThumbnails bool
	ThumbnailSize      int
	Watch              bool
	LogFile            string
	LogFileMaxMB       int
	LogHealthChecks    bool
	MetricsEnabled     bool

	// ConfigFile is the TOML file that was applied, empty when none was found.
	ConfigFile string

	// Derived paths
	DatabasePath string
}

// fileConfig mirrors Config for the TOML overlay. Pointer fields distinguish
// "not set" from zero values so the file only overrides what it names.
type fileConfig struct {
	MediaDirs          []string `toml:"media_dirs"`
	DatabaseDir        *string  `toml:"database_dir"`
	Port               *string  `toml:"port"`
	IndexInterval      *string  `toml:"index_interval"`
	FlushInterval      *string  `toml:"flush_interval"`
	ScanWorkers        *int     `toml:"scan_workers"`
	ExtractMetadata    *bool    `toml:"extract_metadata"`
	GenerateThumbnails *bool    `toml:"generate_thumbnails"`
	ThumbnailSize      *int     `toml:"thumbnail_size"`
	Watch              *bool    `toml:"watch"`
	LogFile            *string  `toml:"log_file"`
	LogFileMaxMB       *int     `toml:"log_file_max_mb"`
	LogHealthChecks    *bool    `toml:"log_health_checks"`
	MetricsEnabled     *bool    `toml:"metrics_enabled"`
}

// LoadConfig loads and validates configuration from environment variables
// and the optional TOML config file.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cfg := configFromEnv()

	configFile := getEnv("CONFIG_FILE", filepath.Join(cfg.DatabaseDir, configFileName))
	applied, err := applyConfigFile(cfg, configFile)
	if err != nil {
		return nil, err
	}
	if applied {
		cfg.ConfigFile = configFile
		logging.Info("  CONFIG_FILE:         %s", configFile)
	} else {
		logging.Debug("  No config file at %s", configFile)
	}

	logging.Info("  MEDIA_DIRS:          %s", strings.Join(cfg.MediaDirs, string(os.PathListSeparator)))
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  INDEX_INTERVAL:      %v", cfg.IndexInterval)
	logging.Info("  FLUSH_INTERVAL:      %v", cfg.FlushInterval)
	logging.Info("  SCAN_WORKERS:        %d", cfg.ScanWorkers)
	logging.Info("  EXTRACT_METADATA:    %v", cfg.ExtractMetadata)
	logging.Info("  GENERATE_THUMBNAILS: %v", cfg.GenerateThumbnails)
	logging.Info("  WATCH:               %v", cfg.Watch)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if cfg.LogFile != "" {
		logging.Info("  LOG_FILE:            %s (max %d MB)", cfg.LogFile, cfg.LogFileMaxMB)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	for _, dir := range cfg.MediaDirs {
		logging.Info("  Media directory (absolute): %s", dir)
		// Media roots are mounted, not created; problems are reported per root.
		if err := checkMediaDirectory(dir); err != nil {
			logging.Warn("  Media directory issue: %v", err)
		}
	}
	logging.Info("  Database directory (absolute): %s", cfg.DatabaseDir)

	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Metadata:    %s", enabledString(cfg.ExtractMetadata))
	logging.Info("    Thumbnails:  %s", enabledString(cfg.GenerateThumbnails))
	logging.Info("    Watcher:     %s", enabledString(cfg.Watch))
	logging.Info("    Metrics:     %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

func configFromEnv() *Config {
	cfg := &Config{
		MediaDirs:          splitList(getEnv("MEDIA_DIRS", getEnv("MEDIA_DIR", "/media"))),
		DatabaseDir:        getEnv("DATABASE_DIR", "/database"),
		Port:               getEnv("PORT", DefaultPort),
		IndexInterval:      getEnvDuration("INDEX_INTERVAL", DefaultIndexInterval),
		FlushInterval:      getEnvDuration("FLUSH_INTERVAL", DefaultFlushInterval),
		ScanWorkers:        getEnvInt("SCAN_WORKERS", 0),
		ExtractMetadata:    getEnvBool("EXTRACT_METADATA", true),
		GenerateThumbnails: getEnvBool("GENERATE_THUMBNAILS", true),
		ThumbnailSize:      getEnvInt("THUMBNAIL_SIZE", DefaultThumbnailSize),
		Watch:              getEnvBool("WATCH", false),
		LogFile:            getEnv("LOG_FILE", ""),
		LogFileMaxMB:       getEnvInt("LOG_FILE_MAX_MB", DefaultLogFileMaxMB),
		LogHealthChecks:    getEnvBool("LOG_HEALTH_CHECKS", false),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
	}
	return cfg
}

// applyConfigFile overlays the TOML file at path onto cfg. A missing file is
// not an error; a malformed one is.
func applyConfigFile(cfg *Config, path string) (bool, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		logging.Warn("  Unknown config file key: %s", key.String())
	}

	if len(fc.MediaDirs) > 0 {
		cfg.MediaDirs = fc.MediaDirs
	}
	if fc.DatabaseDir != nil {
		cfg.DatabaseDir = *fc.DatabaseDir
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.IndexInterval != nil {
		d, err := time.ParseDuration(*fc.IndexInterval)
		if err != nil {
			return false, fmt.Errorf("invalid index_interval %q: %w", *fc.IndexInterval, err)
		}
		cfg.IndexInterval = d
	}
	if fc.FlushInterval != nil {
		d, err := time.ParseDuration(*fc.FlushInterval)
		if err != nil {
			return false, fmt.Errorf("invalid flush_interval %q: %w", *fc.FlushInterval, err)
		}
		cfg.FlushInterval = d
	}
	if fc.ScanWorkers != nil {
		cfg.ScanWorkers = *fc.ScanWorkers
	}
	if fc.ExtractMetadata != nil {
		cfg.ExtractMetadata = *fc.ExtractMetadata
	}
	if fc.GenerateThumbnails != nil {
		cfg.GenerateThumbnails = *fc.GenerateThumbnails
	}
	if fc.ThumbnailSize != nil {
		cfg.ThumbnailSize = *fc.ThumbnailSize
	}
	if fc.Watch != nil {
		cfg.Watch = *fc.Watch
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.LogFileMaxMB != nil {
		cfg.LogFileMaxMB = *fc.LogFileMaxMB
	}
	if fc.LogHealthChecks != nil {
		cfg.LogHealthChecks = *fc.LogHealthChecks
	}
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
	}
	return true, nil
}

func (c *Config) resolvePaths() error {
	dirs := make([]string, 0, len(c.MediaDirs))
	for _, dir := range c.MediaDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve media directory path %s: %w", dir, err)
		}
		dirs = append(dirs, abs)
	}
	c.MediaDirs = dirs

	abs, err := filepath.Abs(c.DatabaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	c.DatabaseDir = abs
	c.DatabasePath = filepath.Join(abs, databaseFileName)
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range filepath.SplitList(value) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogExtractorInit logs which external tools metadata extraction can use
func LogExtractorInit(metadata, thumbnails bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTRACTOR INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Metadata extraction:  %s", enabledString(metadata))
	logging.Info("  Thumbnail generation: %s", enabledString(thumbnails))

	for _, tool := range []string{"ffprobe", "ffmpeg"} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
		} else {
			logging.Info("  [OK] %s is available", tool)
		}
	}
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(roots int, interval, flush time.Duration, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEXER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Roots:          %d", roots)
	if interval > 0 {
		logging.Info("  Index interval: %v", interval)
	} else {
		logging.Info("  Index interval: DISABLED")
	}
	logging.Info("  Flush interval: %v", flush)
	logging.Info("  Scan workers:   %d", workers)
	logging.Info("  Starting indexer...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.Port)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______      __        __
   /  |/  /__  ____/ (_)___ _   / ____/___ _/ /_____ _/ /___  ____ _
  / /|_/ / _ \/ __  / / __ '/  / /   / __ '/ __/ __ '/ / __ \/ __ '/
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / /_/ /_/ / / /_/ / /_/ /
/_/  /_/\___/\__,_/_/\__,_/   \____/\__,_/\__/\__,_/_/\____/\__, /
                                                           /____/
------------------------------------------------------------`
	if logging.GetLevel() <= logging.LevelInfo {
		fmt.Fprintln(os.Stderr, banner)
	}
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	return nil
}

func checkMediaDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("media directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media path %s is not a directory", path)
	}

	if logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(lines[0]))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
