// Package app wires configuration, storage, clients and services into one
// shared core used by cmd/uang-server and by handler tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qoishaidar/uang/internal/clients/gemini"
	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/services/advisor"
	"github.com/qoishaidar/uang/internal/services/dashboard"
	"github.com/qoishaidar/uang/internal/services/ledger"
	"github.com/qoishaidar/uang/internal/storage"
	"github.com/qoishaidar/uang/internal/storage/cache"
)

// App holds all initialized services and clients.
type App struct {
	Config *common.Config
	Logger *common.Logger

	Store interfaces.TableStore
	Cache interfaces.SnapshotStore
	Prefs interfaces.PrefsStore

	Ledger    interfaces.LedgerService
	Dashboard interfaces.DashboardService
	Advisor   interfaces.AdvisorService

	GeminiClient interfaces.GeminiClient

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Config resolution: explicit path, UANG_CONFIG, binary dir, then the
	// development fallback.
	if configPath == "" {
		configPath = os.Getenv("UANG_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "uang.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/uang.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Storage.CachePath != "" && !filepath.IsAbs(config.Storage.CachePath) {
		config.Storage.CachePath = filepath.Join(binDir, config.Storage.CachePath)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := storage.NewTableStore(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table store: %w", err)
	}

	snapshotCache, err := cache.NewStore(logger, config.Storage.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}
	prefs, err := cache.NewPrefs(logger, config.Storage.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prefs: %w", err)
	}

	ctx := context.Background()

	var geminiClient interfaces.GeminiClient
	if config.Clients.Gemini.APIKey != "" {
		gc, err := gemini.NewClient(ctx, config.Clients.Gemini.APIKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini client unavailable - category suggestions will use name matching only")
		} else {
			geminiClient = gc
		}
	} else {
		logger.Info().Msg("Gemini API key not configured - category suggestions will use name matching only")
	}

	ledgerService := ledger.NewService(logger, store, snapshotCache, prefs)

	a := &App{
		Config:       config,
		Logger:       logger,
		Store:        store,
		Cache:        snapshotCache,
		Prefs:        prefs,
		Ledger:       ledgerService,
		Dashboard:    dashboard.NewService(logger, ledgerService),
		Advisor:      advisor.NewService(logger, ledgerService, geminiClient),
		GeminiClient: geminiClient,
		StartupTime:  time.Now(),
	}

	// Warm the collections from the server in the background so startup does
	// not block on the network. The cache already seeded the ledger.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := a.Ledger.Refresh(warmCtx); err != nil {
			logger.Warn().Err(err).Msg("Initial refresh failed, serving cached state")
		}
	}()

	return a, nil
}

// Close releases services, clients and storage.
func (a *App) Close() {
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing ledger service")
		}
	}
	if a.GeminiClient != nil {
		if err := a.GeminiClient.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing Gemini client")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing table store")
		}
	}
}
