package domain

import (
	"context"
	"image"
	"time"
)

// Decoder derives artifacts from a source video.
// Implemented by the ffmpeg adapter; tests substitute fakes.
type Decoder interface {
	// Probe reads duration, frame dimensions and audio presence
	Probe(ctx context.Context, videoPath string) (MediaInfo, error)

	// WriteFrame writes a single still frame at the given offset as JPEG
	WriteFrame(ctx context.Context, videoPath string, at time.Duration, dst string) error

	// WriteAudio re-encodes the audio stream to dst (44.1 kHz Vorbis)
	WriteAudio(ctx context.Context, videoPath string, dst string) error
}

// FrameSource opens videos for repeated, timestamp-addressed frame extraction
type FrameSource interface {
	Open(videoPath string) (FrameHandle, error)
}

// FrameHandle is an open decode handle bound to one video
type FrameHandle interface {
	FrameAt(at time.Duration) (image.Image, error)
	Close() error
}

// AudioDevice plays one derived audio track at a time.
//
// onEnd is invoked from the device's own goroutine when the track completes
// naturally. It is never invoked for a track that was replaced or stopped.
type AudioDevice interface {
	Play(audioPath string, start time.Duration, paused bool, onEnd func()) error
	Pause()
	Resume()
	Stop()
	SetVolume(volume float64)
}

// Clock is the wall-clock source for playback anchoring
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
