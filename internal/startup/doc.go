// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables by [LoadConfig] and then
// overlaid by an optional TOML file. The file is CONFIG_FILE when set, otherwise
// catalog.toml inside DATABASE_DIR. Keys in the file use snake_case names
// (media_dirs, index_interval, scan_workers, ...) and only override what they name.
//
//   - MEDIA_DIRS: Media roots separated by the OS path-list separator (default: /media)
//   - DATABASE_DIR: Directory holding catalog.db (default: /database)
//   - PORT: HTTP server port, also serving /metrics (default: 8080)
//   - INDEX_INTERVAL: Periodic rescan interval, 0 disables (default: 30m)
//   - FLUSH_INTERVAL: Write-back queue flush interval (default: 5s)
//   - SCAN_WORKERS: Parallel folder scans, 0 sizes from GOMAXPROCS (default: 0)
//   - EXTRACT_METADATA: Read EXIF and ffprobe metadata while scanning (default: true)
//   - GENERATE_THUMBNAILS: Store thumbnails while scanning (default: true)
//   - THUMBNAIL_SIZE: Longest thumbnail edge in pixels (default: 256)
//   - WATCH: Apply filesystem notifications between rescans (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_FILE: Also write logs to this rotated file
//   - LOG_FILE_MAX_MB: Rotation size for LOG_FILE (default: 50)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - METRICS_ENABLED: Expose /metrics (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogExtractorInit]: ffprobe/ffmpeg availability
//   - [LogIndexerInit]: Indexer roots and intervals
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
package startup
