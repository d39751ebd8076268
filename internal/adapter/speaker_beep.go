//go:build (linux && cgo) || windows || darwin

package adapter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
)

// AudioAvailable indicates whether audio output is supported in this build.
const AudioAvailable = true

// Speaker implements domain.AudioDevice on the beep speaker. One track plays
// at a time; loading a track replaces the previous one.
type Speaker struct {
	mu sync.Mutex

	sampleRate  beep.SampleRate
	buffer      time.Duration
	initialized bool

	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64

	// playID identifies the loaded track; end callbacks from older tracks
	// are dropped
	playID uint64
	logger *slog.Logger
}

// NewSpeaker creates a speaker. The device is opened on first Play.
func NewSpeaker(cfg PlayerConfig, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		sampleRate: beep.SampleRate(cfg.SampleRate),
		buffer:     time.Duration(cfg.BufferMS) * time.Millisecond,
		level:      cfg.Volume,
		logger:     logger,
	}
}

func (s *Speaker) initLocked() error {
	if s.initialized {
		return nil
	}
	if err := speaker.Init(s.sampleRate, s.sampleRate.N(s.buffer)); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	s.initialized = true
	return nil
}

// Play loads audioPath at start. The previous track keeps playing if the
// new one cannot be opened or decoded.
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
	if start > 0 {
		pos := min(format.SampleRate.N(start), max(streamer.Len()-1, 0))
		if err := streamer.Seek(pos); err != nil {
			streamer.Close()
			return fmt.Errorf("failed to seek %s: %w", audioPath, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(); err != nil {
		streamer.Close()
		return err
	}
	s.stopLocked()

	s.playID++
	id := s.playID
	s.streamer = streamer
	s.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, s.sampleRate, streamer), Paused: paused}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	applyLevel(s.volume, s.level)

	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		// Runs under the speaker lock; hand off so onEnd may call back in
		go s.finished(id, onEnd)
	})))
	return nil
}

func (s *Speaker) finished(id uint64, onEnd func()) {
	s.mu.Lock()
	current := id == s.playID
	s.mu.Unlock()
	if current && onEnd != nil {
		onEnd()
	}
}

// Pause pauses playback
func (s *Speaker) Pause() { s.setPaused(true) }

// Resume resumes playback
func (s *Speaker) Resume() { s.setPaused(false) }

func (s *Speaker) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = paused
		speaker.Unlock()
	}
}

// Stop stops playback completely
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	s.playID++
	if s.initialized {
		speaker.Clear()
	}
	if s.streamer != nil {
		if err := s.streamer.Close(); err != nil {
			s.logger.Debug("failed to close audio stream", "error", err)
		}
		s.streamer = nil
	}
	s.ctrl = nil
	s.volume = nil
}

// SetVolume sets the output level in [0,1]
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	if s.volume != nil {
		speaker.Lock()
		applyLevel(s.volume, level)
		speaker.Unlock()
	}
}

// applyLevel maps a linear level onto beep's exponential volume
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0.001 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(min(level, 1))
}
