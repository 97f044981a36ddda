package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"learnview/internal/api"
	"learnview/internal/config"
	"learnview/internal/media"
	"learnview/internal/quiz"
	"learnview/internal/server"
	"learnview/internal/session"
	"learnview/internal/storage"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to config file")
	libraryPath := flag.String("library", "", "course library directory (overrides config)")
	port := flag.IntP("port", "p", 0, "listen port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *libraryPath != "" {
		cfg.Library.Path = *libraryPath
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting learnview server")

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	scanner := media.NewScanner(store, logger)
	probes := media.NewProbeService(media.NewFFprobe(logger), store, logger)

	sessions := session.NewManager(store, session.Config{
		Capacity:         cfg.Sessions.Capacity,
		IdleTimeout:      cfg.Sessions.IdleTimeout,
		SaveInterval:     cfg.Sessions.SaveInterval,
		PictureInPicture: cfg.Sessions.PictureInPicture,
	}, logger)

	quizzes := quiz.NewService(store, logger)

	srv := server.New(cfg, logger, store, sessions, quizzes)
	srv.SetScanner(scanner)
	srv.SetDurationService(probes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionsDone := make(chan struct{})
	go func() {
		sessions.Run(ctx)
		close(sessionsDone)
	}()

	if cfg.Library.Path != "" {
		go func() {
			logger.Info().Str("path", cfg.Library.Path).Msg("starting initial library scan")
			if err := scanner.ScanPath(cfg.Library.Path); err != nil {
				logger.Error().Err(err).Msg("initial scan failed")
				return
			}
			logger.Info().Msg("initial scan completed")
			probes.Run(ctx, cfg.Library.ProbeBatch, cfg.Library.ProbeDelay)
		}()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	// Flush open sessions before the store closes.
	cancel()
	<-sessionsDone

	logger.Info().Msg("server stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
