package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/handlers"
	"media-catalog/internal/index"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/memory"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/paths"
	"media-catalog/internal/startup"
	"media-catalog/internal/workers"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var (
	configFile string

	queryLimit int
	queryJSON  bool

	resetCatalog bool
	assumeYes    bool
)

var rootCmd = &cobra.Command{
	Use:           "media-catalog",
	Short:         "Media catalog index and search service",
	Long:          "Indexes media folders into a searchable catalog backed by SQLite and serves it over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if configFile != "" {
			os.Setenv("CONFIG_FILE", configFile)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Index the media folders and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var queryCmd = &cobra.Command{
	Use:   "query <search text>",
	Short: "Search the cached catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var countCmd = &cobra.Command{
	Use:   "count <search text>",
	Short: "Count the items a search matches in the cached catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCount,
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Compact the database, or clear it with --reset",
	Args:  cobra.NoArgs,
	RunE:  runMaintenance,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := startup.GetBuildInfo()
		cmd.Printf("media-catalog %s\n", info.Version)
		cmd.Printf("  Commit:     %s\n", info.Commit)
		cmd.Printf("  Build time: %s\n", info.BuildTime)
		cmd.Printf("  Go:         %s\n", info.GoVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML config file (default: $DATABASE_DIR/catalog.toml)")

	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 50, "maximum number of results (0 for all)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "write results as JSON even on a terminal")
	countCmd.Flags().BoolVar(&queryJSON, "json", false, "write the count as JSON even on a terminal")

	maintenanceCmd.Flags().BoolVar(&resetCatalog, "reset", false, "delete every cached folder, item and thumbnail")
	maintenanceCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

// mediaRoots converts the configured media directories to catalog folders.
func mediaRoots(cfg *startup.Config) []paths.Folder {
	roots := make([]paths.Folder, 0, len(cfg.MediaDirs))
	for _, dir := range cfg.MediaDirs {
		roots = append(roots, paths.NewFolder(dir))
	}
	return roots
}

// volumes labels the media roots and the database directory for the
// filesystem metrics.
func volumes(cfg *startup.Config) []filesystem.Volume {
	vols := make([]filesystem.Volume, 0, len(cfg.MediaDirs)+1)
	for _, dir := range cfg.MediaDirs {
		vols = append(vols, filesystem.Volume{Name: "media", Path: dir})
	}
	return append(vols, filesystem.Volume{Name: "database", Path: cfg.DatabaseDir})
}

// openDatabase opens the catalog database, explaining how to recover when
// the file is corrupt.
func openDatabase(ctx context.Context, cfg *startup.Config) (*database.Database, error) {
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		var corrupt *database.CorruptError
		if errors.As(err, &corrupt) {
			logging.Error("The catalog database is unreadable. Run 'media-catalog maintenance --reset' to rebuild it.")
		}
		return nil, err
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	// Set GOMEMLIMIT before the catalog is loaded
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.LogFile != "" {
		closer := logging.SetOutputFile(logging.FileConfig{
			Path:       config.LogFile,
			MaxSizeMB:  config.LogFileMaxMB,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		})
		defer closer.Close()
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes(config)...))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Initialize database
	dbStart := time.Now()
	db, err := openDatabase(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize metadata extraction
	startup.LogExtractorInit(config.ExtractMetadata, config.GenerateThumbnails)
	var extractor index.Extractor
	if config.ExtractMetadata || config.GenerateThumbnails {
		extractor = media.NewExtractor(config.ThumbnailSize)
	}

	// Initialize catalog and indexer
	scanWorkers := workers.ForScan(config.ScanWorkers)
	startup.LogIndexerInit(len(config.MediaDirs), config.IndexInterval, config.FlushInterval, scanWorkers)
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()
	defer memMonitor.Stop()

	state := index.New(db, extractor, index.Options{Workers: scanWorkers, Throttle: memMonitor})
	idx := indexer.New(state, db, indexer.Config{
		Roots:              mediaRoots(config),
		IndexInterval:      config.IndexInterval,
		FlushInterval:      config.FlushInterval,
		ExtractMetadata:    config.ExtractMetadata,
		GenerateThumbnails: config.GenerateThumbnails,
		Watch:              config.Watch,
	})

	if err := idx.Start(ctx); err != nil {
		startup.LogFatal("Failed to start indexer: %v", err)
	}
	startup.LogIndexerStarted()

	collector := metrics.NewCollector(state, time.Minute)
	collector.Start()

	// Initialize handlers
	h := handlers.New(idx, db, config)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		startup.LogServerStarted(startup.ServerConfig{
			Port:            config.Port,
			MetricsEnabled:  config.MetricsEnabled,
			StartupDuration: time.Since(startTime),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		collector.Stop()
		idx.Stop()
		return err
	case sig := <-sigChan:
		handleShutdown(sig, srv, idx, collector)
		return nil
	}
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r, metricsEnabled)
	if metricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	return r
}

func handleShutdown(sig os.Signal, srv *http.Server, idx *indexer.Indexer, collector *metrics.Collector) {
	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping indexer and flushing pending writes")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownComplete()
}
