package adapter

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestOffsetArgs(t *testing.T) {
	Convey("Given a start offset", t, func() {
		at := 83500 * time.Millisecond

		Convey("An '=' flag should carry the value inline", func() {
			So(offsetArgs("--start=", at), ShouldResemble, []string{"--start=83.5"})
		})

		Convey("A flag ending in a space should take a separate value", func() {
			So(offsetArgs("-ss ", at), ShouldResemble, []string{"-ss", "83.5"})
		})

		Convey("A zero offset or missing flag should add nothing", func() {
			So(offsetArgs("--start=", 0), ShouldBeEmpty)
			So(offsetArgs("", at), ShouldBeEmpty)
		})
	})
}

type startCall struct {
	name string
	args []string
}

func testLauncher(cfg PlayerConfig, installed ...string) (*Launcher, *[]startCall) {
	var calls []startCall
	l := NewLauncher(cfg, NullLogger())
	l.lookPath = func(bin string) (string, error) {
		for _, b := range installed {
			if b == bin {
				return "/usr/bin/" + bin, nil
			}
		}
		return "", errors.New("not found")
	}
	l.start = func(name string, args ...string) error {
		calls = append(calls, startCall{name: name, args: args})
		return nil
	}
	return l, &calls
}

func TestLauncher(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("player detection order is platform specific")
	}

	Convey("Given a configured mpv player", t, func() {
		l, calls := testLauncher(PlayerConfig{Command: "/usr/local/bin/mpv", Args: []string{"--no-terminal"}}, "/usr/local/bin/mpv")

		Convey("It should derive the offset flag and pass the video last", func() {
			So(l.Launch("/data/songs/a.mp4", 12*time.Second), ShouldBeNil)
			So(*calls, ShouldHaveLength, 1)
			So((*calls)[0].name, ShouldEqual, "/usr/local/bin/mpv")
			So((*calls)[0].args, ShouldResemble, []string{"--no-terminal", "--start=12.0", "/data/songs/a.mp4"})
		})
	})

	Convey("Given no configured player", t, func() {
		Convey("It should use the first installed known player in full-window mode", func() {
			l, calls := testLauncher(PlayerConfig{}, "vlc", "ffplay")
			So(l.Launch("/v.mkv", 2*time.Second), ShouldBeNil)
			So((*calls)[0].name, ShouldEqual, "vlc")
			So((*calls)[0].args, ShouldResemble, []string{"--start-time=2.0", "--fullscreen", "/v.mkv"})
		})

		Convey("It should fall back to the desktop handler", func() {
			l, calls := testLauncher(PlayerConfig{})
			So(l.Launch("/v.mkv", time.Second), ShouldBeNil)
			So((*calls)[0].name, ShouldEqual, "xdg-open")
			So((*calls)[0].args, ShouldResemble, []string{"/v.mkv"})
		})
	})
}

func TestParseProbe(t *testing.T) {
	Convey("Given ffprobe JSON output", t, func() {
		Convey("It should read size, duration and audio presence", func() {
			info, err := parseProbe([]byte(`{
				"streams": [
					{"codec_type": "video", "width": 1280, "height": 720, "duration": "61.2"},
					{"codec_type": "audio", "duration": "61.0"}
				],
				"format": {"duration": "61.250000"}
			}`))
			So(err, ShouldBeNil)
			So(info.Width, ShouldEqual, 1280)
			So(info.Height, ShouldEqual, 720)
			So(info.HasAudio, ShouldBeTrue)
			So(info.Duration, ShouldEqual, 61250*time.Millisecond)
		})

		Convey("A silent video should report no audio", func() {
			info, err := parseProbe([]byte(`{"streams":[{"codec_type":"video","width":2,"height":2}],"format":{"duration":"N/A"}}`))
			So(err, ShouldBeNil)
			So(info.HasAudio, ShouldBeFalse)
			So(info.Duration, ShouldEqual, 0)
		})

		Convey("Output without a video stream should be a decode error", func() {
			_, err := parseProbe([]byte(`{"streams":[{"codec_type":"audio"}]}`))
			So(errors.Is(err, domain.ErrDecode), ShouldBeTrue)
		})

		Convey("Garbage should be a decode error", func() {
			_, err := parseProbe([]byte(`not json`))
			So(errors.Is(err, domain.ErrDecode), ShouldBeTrue)
		})
	})
}

func TestParseLogLevel(t *testing.T) {
	Convey("Log levels should parse case-insensitively", t, func() {
		So(parseLogLevel("debug"), ShouldEqual, slog.LevelDebug)
		So(parseLogLevel(" Warning "), ShouldEqual, slog.LevelWarn)
		So(parseLogLevel("ERROR"), ShouldEqual, slog.LevelError)
		So(parseLogLevel("chatty"), ShouldEqual, slog.LevelInfo)
	})
}

func TestConfig(t *testing.T) {
	Convey("Given an empty config directory", t, func() {
		dir := t.TempDir()

		Convey("Defaults should apply", func() {
			cfg, err := loadConfig(viper.New(), dir)
			So(err, ShouldBeNil)
			So(cfg.Library.PageSize, ShouldEqual, 5)
			So(cfg.Player.Volume, ShouldEqual, 0.7)
			So(cfg.Decoder.Timeout, ShouldEqual, 2*time.Minute)
			So(cfg.UI.TickRate, ShouldEqual, 60)
		})

		Convey("Environment variables should override defaults", func() {
			os.Setenv("REEL_LIBRARY_PAGE_SIZE", "12")
			os.Setenv("REEL_LIBRARY_SEARCH_MODE", "fuzzy")
			defer os.Unsetenv("REEL_LIBRARY_PAGE_SIZE")
			defer os.Unsetenv("REEL_LIBRARY_SEARCH_MODE")
			cfg, err := loadConfig(viper.New(), dir)
			So(err, ShouldBeNil)
			So(cfg.Library.PageSize, ShouldEqual, 12)
			So(cfg.Library.SearchMode, ShouldEqual, "fuzzy")
		})

		Convey("Out-of-range values should be normalized", func() {
			So(os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("library:\n  page_size: -3\nplayer:\n  volume: 4\n"), 0644), ShouldBeNil)
			cfg, err := loadConfig(viper.New(), dir)
			So(err, ShouldBeNil)
			So(cfg.Library.PageSize, ShouldEqual, 5)
			So(cfg.Player.Volume, ShouldEqual, 0.7)
		})

		Convey("A saved config should load back", func() {
			cfg := DefaultConfig()
			cfg.Library.Root = "/srv/reel"
			cfg.Player.Command = "mpv"
			So(saveConfig(viper.New(), cfg, dir), ShouldBeNil)

			loaded, err := loadConfig(viper.New(), dir)
			So(err, ShouldBeNil)
			So(loaded.Library.Root, ShouldEqual, "/srv/reel")
			So(loaded.Player.Command, ShouldEqual, "mpv")
		})
	})
}

func TestNotifier(t *testing.T) {
	Convey("Given a notifier", t, func() {
		var mu sync.Mutex
		var sent []string
		done := make(chan struct{}, 8)
		n := NewNotifier(NullLogger())
		n.send = func(title, message string) error {
			mu.Lock()
			sent = append(sent, message)
			mu.Unlock()
			done <- struct{}{}
			return nil
		}

		song := &domain.Song{ID: "a", Name: "Intro", Artist: "Band"}

		Convey("It should notify once per newly current song", func() {
			n.OnTransition(domain.PlaybackSnapshot{State: domain.StatePlaying, Current: song})
			<-done
			n.OnTransition(domain.PlaybackSnapshot{State: domain.StatePaused, Current: song})
			n.OnTransition(domain.PlaybackSnapshot{State: domain.StateStopped})
			n.OnTransition(domain.PlaybackSnapshot{State: domain.StatePlaying, Current: song})
			<-done

			mu.Lock()
			defer mu.Unlock()
			So(sent, ShouldResemble, []string{"Intro\nBand", "Intro\nBand"})
		})
	})
}
