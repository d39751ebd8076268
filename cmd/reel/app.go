package main

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/reel/internal/adapter"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/library"
	"github.com/mmcdole/reel/internal/media"
	"github.com/mmcdole/reel/internal/playback"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/service"
	"github.com/mmcdole/reel/internal/store"
	"github.com/spf13/afero"
)

// app holds the wired components shared by the player and the subcommands
type app struct {
	cfg      *adapter.Config
	logger   *slog.Logger
	closeLog func() error

	store   *store.StateStore
	ffmpeg  *adapter.FFmpeg
	player  *playback.Controller
	library *service.LibraryService
}

func newApp(cfg *adapter.Config, observers ...domain.PlaybackObserver) (*app, error) {
	logger, closeLog, err := adapter.SetupLogger(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closeLog = adapter.NullLogger(), func() error { return nil }
	}
	slog.SetDefault(logger)

	fs := afero.NewOsFs()
	resolver := library.NewResolver(fs, library.DefaultPaths(cfg.Library.Root))
	paths := resolver.Paths()

	states, err := store.NewStateStore(paths.CacheDir())
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	ffmpeg := adapter.NewFFmpeg(cfg.Decoder, logger)
	assets := media.NewAssets(fs, ffmpeg, logger)
	frames := media.NewFrameSession(ffmpeg, logger)
	speaker := adapter.NewSpeaker(cfg.Player, logger)
	index := library.NewIndex(cfg.Library.PageSize, search.ParseMode(cfg.Library.SearchMode))

	player := playback.NewController(index, assets, frames, speaker, playback.Options{
		Store:     states,
		Volume:    cfg.Player.Volume,
		Observers: observers,
		Logger:    logger,
	})

	lib := service.NewLibraryService(fs, resolver, assets, player, service.LibraryOptions{
		Store:   states,
		Workers: cfg.Library.PrepareWorkers,
		Logger:  logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		store:    states,
		ffmpeg:   ffmpeg,
		player:   player,
		library:  lib,
	}, nil
}

// Close stops playback and releases the state store and log file
func (a *app) Close() {
	a.player.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close state store", "error", err)
	}
	a.closeLog()
}

// loadCLI builds the app for a scripted subcommand, logging to stderr
func loadCLI() (*app, error) {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Logging.File = "-"
	if cfg.Logging.Level == "INFO" {
		cfg.Logging.Level = "WARN"
	}

	a, err := newApp(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.library.LoadLibrary(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return a, nil
}
