package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Launcher opens a song's source video full-window in an external player,
// starting at the transport position.
type Launcher struct {
	command   string   // configured player command, empty to auto-detect
	args      []string // additional arguments for the player
	startFlag string   // offset flag prefix, e.g., "--start=" or "-ss "
	logger    *slog.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// knownPlayer describes how to drive one external player
type knownPlayer struct {
	offsetFlag     string   // "--start=" style, or "-flag " when the value is a separate argument
	fullscreenFlag string   // flag for a full-window start, empty if unsupported
	binaries       []string // executable names to look for, in order
	macApp         string   // app bundle name for "open -a" on macOS
}

var knownPlayers = map[string]knownPlayer{
	"mpv":       {offsetFlag: "--start=", fullscreenFlag: "--fs", binaries: []string{"mpv"}},
	"vlc":       {offsetFlag: "--start-time=", fullscreenFlag: "--fullscreen", binaries: []string{"vlc"}, macApp: "VLC"},
	"iina":      {offsetFlag: "--mpv-start=", fullscreenFlag: "--mpv-fs", macApp: "IINA"},
	"celluloid": {offsetFlag: "--mpv-start=", fullscreenFlag: "--mpv-fs", binaries: []string{"celluloid"}},
	"ffplay":    {offsetFlag: "-ss ", fullscreenFlag: "-fs", binaries: []string{"ffplay"}},
	"potplayer": {offsetFlag: "/seek=", binaries: []string{"PotPlayerMini64.exe", "PotPlayerMini.exe"}},
}

// detectOrder is the preferred player order per platform
var detectOrder = map[string][]string{
	"darwin":  {"iina", "vlc", "mpv", "ffplay"},
	"linux":   {"mpv", "celluloid", "vlc", "ffplay"},
	"windows": {"vlc", "mpv", "potplayer", "ffplay"},
}

// NewLauncher creates a launcher. The offset flag of a known configured
// player is filled in when start_flag is not set.
func NewLauncher(cfg PlayerConfig, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}

	flag := cfg.StartFlag
	if flag == "" && cfg.Command != "" {
		if p, ok := knownPlayers[playerName(cfg.Command)]; ok {
			flag = p.offsetFlag
			logger.Debug("auto-detected player offset flag", "player", cfg.Command, "flag", flag)
		}
	}

	return &Launcher{
		command:   cfg.Command,
		args:      cfg.Args,
		startFlag: flag,
		logger:    logger,
		lookPath:  exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Launch opens videoPath at offset. The configured player is used when
// set; otherwise the first installed known player; otherwise the system
// default handler, which cannot seek.
func (l *Launcher) Launch(videoPath string, at time.Duration) error {
	if l.command != "" {
		args := append(append([]string{}, l.args...), offsetArgs(l.startFlag, at)...)
		if at > 0 && l.startFlag == "" {
			l.logger.Warn("cannot set start offset - unknown player, configure start_flag in config",
				"command", l.command, "offset", at)
		}
		return l.run(l.command, "", append(args, videoPath))
	}

	for _, name := range detectOrder[platform()] {
		p := knownPlayers[name]
		args := offsetArgs(p.offsetFlag, at)
		if p.fullscreenFlag != "" {
			args = append(args, p.fullscreenFlag)
		}
		args = append(args, videoPath)

		for _, bin := range p.binaries {
			if _, err := l.lookPath(bin); err == nil {
				l.logger.Info("launching detected player", "player", name, "offset", at)
				return l.start(bin, args...)
			}
		}
		if p.macApp != "" && runtime.GOOS == "darwin" {
			if err := l.run("", p.macApp, args); err == nil {
				return nil
			}
		}
	}

	l.logger.Info("no known player found, using system default", "os", runtime.GOOS)
	return l.openDefault(videoPath)
}

// run starts command directly, or through "open -a app" on macOS when the
// command is not on PATH.
func (l *Launcher) run(command, app string, args []string) error {
	if command != "" {
		if _, err := l.lookPath(command); err == nil || runtime.GOOS != "darwin" {
			l.logger.Info("launching player", "command", command, "args", args)
			return l.start(command, args...)
		}
		app = command
	}

	openArgs := []string{"-n", "-a", app}
	if len(args) > 1 {
		openArgs = append(openArgs, "--args")
		openArgs = append(openArgs, args[:len(args)-1]...)
	}
	openArgs = append(openArgs, args[len(args)-1])
	l.logger.Info("using macOS 'open -a' to launch GUI app", "app", app, "args", openArgs)
	return l.start("open", openArgs...)
}

func (l *Launcher) openDefault(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return l.start("open", path)
	case "windows":
		return l.start("cmd", "/c", "start", "", path)
	default:
		return l.start("xdg-open", path)
	}
}

// offsetArgs renders the start offset for flag. Flags ending in a space
// take the value as a separate argument.
func offsetArgs(flag string, at time.Duration) []string {
	if at <= 0 || flag == "" {
		return nil
	}
	value := fmt.Sprintf("%.1f", at.Seconds())
	if strings.HasSuffix(flag, " ") {
		return []string{strings.TrimSuffix(flag, " "), value}
	}
	return []string{flag + value}
}

// playerName reduces a command path to a knownPlayers key
func playerName(command string) string {
	base := filepath.Base(command)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func platform() string {
	if _, ok := detectOrder[runtime.GOOS]; ok {
		return runtime.GOOS
	}
	return "linux"
}
