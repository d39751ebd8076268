//go:build !((linux && cgo) || windows || darwin)

package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2/vorbis"
)

// AudioAvailable indicates whether audio output is supported in this build.
// Audio requires cgo for native sound libraries on this platform.
const AudioAvailable = false

// Speaker keeps time for tracks without producing sound, so playback
// still advances at end of track in builds without audio output.
type Speaker struct {
	mu sync.Mutex

	timer     *time.Timer
	remaining time.Duration
	started   time.Time
	onEnd     func()
	playID    uint64
	logger    *slog.Logger
}

// NewSpeaker creates a silent speaker
func NewSpeaker(cfg PlayerConfig, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("audio output unavailable in this build")
	return &Speaker{logger: logger}
}

// Play measures the track and schedules its end
func (s *Speaker) Play(audioPath string, start time.Duration, paused bool, onEnd func()) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode %s: %w", audioPath, err)
	}
	length := format.SampleRate.D(streamer.Len())
	streamer.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.playID++
	s.onEnd = onEnd
	s.remaining = max(length-start, 0)
	if !paused {
		s.scheduleLocked()
	}
	return nil
}

func (s *Speaker) scheduleLocked() {
	id := s.playID
	onEnd := s.onEnd
	s.started = time.Now()
	s.timer = time.AfterFunc(s.remaining, func() {
		s.mu.Lock()
		current := id == s.playID
		s.mu.Unlock()
		if current && onEnd != nil {
			onEnd()
		}
	})
}

// Pause freezes the remaining time. A track whose end has already fired
// stays finished, so Resume does not end it a second time.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil {
		return
	}
	if s.timer.Stop() {
		s.remaining = max(s.remaining-time.Since(s.started), 0)
	} else {
		s.remaining = 0
		s.onEnd = nil
	}
	s.timer = nil
}

// Resume reschedules the end of the track
func (s *Speaker) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil && s.onEnd != nil {
		s.scheduleLocked()
	}
}

// Stop drops the current track
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	s.playID++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.onEnd = nil
}

// SetVolume is a no-op without audio output
func (s *Speaker) SetVolume(level float64) {}
