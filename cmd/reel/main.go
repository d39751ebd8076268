package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/adapter"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "reel",
	Short:         "Play the videos of a local song library in the terminal",
	Long:          "reel plays a local library of music videos: audio through the speakers,\nvideo as a terminal preview. Run without arguments to open the player.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlayer()
	},
}

func init() {
	rootCmd.AddCommand(listCmd, importCmd, deleteCmd, prepareCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runPlayer opens the interactive player
func runPlayer() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("the player needs an interactive terminal; see `reel --help` for scripted commands")
	}

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	snapshots := make(chan domain.PlaybackSnapshot, 1)
	observers := []domain.PlaybackObserver{tui.NewChannelObserver(snapshots)}
	if cfg.Notify.TrackChange {
		observers = append(observers, adapter.NewNotifier(nil))
	}

	a, err := newApp(cfg, observers...)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("starting reel", "version", Version, "root", a.library.Paths().DataRoot)

	if err := a.ffmpeg.Available(); err != nil {
		logger.Warn("media tools unavailable", "error", err)
	}

	if err := a.library.LoadLibrary(); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := a.library.Watch(ctx)
	if err != nil {
		logger.Warn("library watcher unavailable", "error", err)
		reloads = nil
	}

	model := tui.NewModel(a.player, a.library, tui.Options{
		TickRate:  cfg.UI.TickRate,
		Preview:   cfg.UI.Preview,
		Launcher:  adapter.NewLauncher(cfg.Player, logger),
		Snapshots: snapshots,
		Reloads:   reloads,
		Logger:    logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
