package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JolanLar/lunager/internal/api"
	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/config"
	"github.com/JolanLar/lunager/internal/database"
	"github.com/JolanLar/lunager/internal/engine"
	"github.com/JolanLar/lunager/internal/logger"
	"github.com/JolanLar/lunager/internal/retention"
	"github.com/JolanLar/lunager/internal/scheduler"
	"github.com/JolanLar/lunager/internal/startup"
	"github.com/JolanLar/lunager/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Run a single sync pass, print the retention report and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting lunager")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := catalog.NewStore(db.Conn(), log.Logger)
	registry := storage.NewRegistry(db.Conn(), log.Logger)
	eng := engine.New(store, registry, log.Logger)
	classifier := retention.NewClassifier(store, log.Logger)
	runner := startup.NewSyncRunner(cfg, eng, registry, log.Logger)

	if *once {
		runOnce(cfg, runner, classifier, log)
		return
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	err = sched.RegisterTask(scheduler.TaskConfig{
		ID:         api.SyncTaskID,
		Name:       "Full catalog sync",
		Cron:       cfg.Sync.Cron,
		Func:       runner.Run,
		RunOnStart: cfg.Sync.RunOnStart,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register sync task")
	}

	server := api.NewServer(cfg, store, registry, classifier, sched, log.Logger)

	sched.Start()
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop HTTP server")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop scheduler")
	}
}

// runOnce performs one sync chain and prints the deletion-candidate
// report, mirroring what the scheduled task does in daemon mode.
func runOnce(cfg *config.Config, runner *startup.SyncRunner, classifier *retention.Classifier, log *logger.Logger) {
	ctx := context.Background()

	if err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("sync finished with errors")
	}

	report, err := classifier.CandidatesAfterInactivity(ctx, cfg.Retention.ThresholdDays)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to classify deletion candidates")
	}

	for _, title := range report.Movies {
		fmt.Printf("movie\t%d\t%s\t%s\t%s\n", title.ExternalID, title.Name, title.PathHD, title.Path4K)
	}
	for _, title := range report.Series {
		fmt.Printf("series\t%d\t%s\t%s\t%s\n", title.ExternalID, title.Name, title.PathHD, title.Path4K)
	}
	log.Info().
		Int("movies", len(report.Movies)).
		Int("series", len(report.Series)).
		Msg("deletion candidates")
}
