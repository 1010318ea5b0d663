package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/internal/clientdata"
	"folio/internal/clients/yahoo"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/events"
	"folio/internal/modules/history"
	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/scheduler"
	"folio/internal/server"
	"folio/internal/store"
	"folio/pkg/logger"
)

// snapshotSchedule records net worth once a day after US market close.
const snapshotSchedule = "0 22 * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting folio")

	// Databases
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath,
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Portfolio store, optionally mirrored to S3
	st := store.New(store.Config{
		Path:      cfg.PortfolioPath,
		BackupDir: cfg.BackupDir,
	}, log)

	if cfg.S3BackupBucket != "" {
		mirror, err := store.NewS3Mirror(context.Background(), cfg.S3BackupBucket, cfg.S3BackupPrefix, log)
		if err != nil {
			log.Warn().Err(err).Msg("S3 mirror disabled, continuing with local backups only")
		} else {
			st.SetMirror(mirror)
		}
	}

	// Quote cache
	quoteCache := clientdata.NewRepository(cacheDB.Conn())
	if err := quoteCache.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate quote cache")
	}

	// Services
	eventBus := events.NewBus()
	eventManager := events.NewManager(eventBus, log)

	quotes := yahoo.NewClient(log)
	oracleService := oracle.New(quotes, quoteCache, oracle.Config{
		Timeout:  cfg.OracleTimeout,
		CacheTTL: cfg.QuoteCacheTTL,
	}, log)
	valuationService := valuation.NewService(log)

	historyRepo := history.NewRepository(historyDB, log)
	if err := historyRepo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}
	historyService := history.NewService(historyRepo, st, oracleService, valuationService, eventManager, log)

	// Background jobs
	sched := scheduler.New(log)
	snapshotJob := history.NewSnapshotJob(historyService, cfg.OracleTimeout)
	if err := sched.AddJob(snapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Store:     st,
		Oracle:    oracleService,
		Valuation: valuationService,
		History:   historyService,
		Events:    eventManager,
		Log:       log,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}
