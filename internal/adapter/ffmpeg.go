package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// audioSampleRate is the rate of every derived audio track
const audioSampleRate = 44100

// FFmpeg implements domain.Decoder and domain.FrameSource with the ffmpeg
// and ffprobe executables.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFmpeg creates a decoder. Empty binary names fall back to PATH lookup
// of "ffmpeg" and "ffprobe".
func NewFFmpeg(cfg DecoderConfig, logger *slog.Logger) *FFmpeg {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FFmpeg{ffmpeg: cfg.FFmpeg, ffprobe: cfg.FFprobe, timeout: cfg.Timeout, logger: logger}
	if f.ffmpeg == "" {
		f.ffmpeg = "ffmpeg"
	}
	if f.ffprobe == "" {
		f.ffprobe = "ffprobe"
	}
	return f
}

// Available reports whether both executables can be found
func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.ffmpeg, f.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

// probeOutput is the subset of `ffprobe -print_format json` we read
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration, frame size and audio presence
func (f *FFmpeg) Probe(ctx context.Context, videoPath string) (domain.MediaInfo, error) {
	out, err := f.run(ctx, f.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	if err != nil {
		return domain.MediaInfo{}, fmt.Errorf("%w: probe %s: %v", domain.ErrDecode, videoPath, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (domain.MediaInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.MediaInfo{}, fmt.Errorf("%w: unreadable probe output: %v", domain.ErrDecode, err)
	}

	var info domain.MediaInfo
	hasVideo := false
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if !hasVideo {
				info.Width, info.Height = s.Width, s.Height
				hasVideo = true
			}
			info.Duration = max(info.Duration, parseSeconds(s.Duration))
		case "audio":
			info.HasAudio = true
		}
	}
	if !hasVideo {
		return domain.MediaInfo{}, fmt.Errorf("%w: no video stream", domain.ErrDecode)
	}
	if d := parseSeconds(probe.Format.Duration); d > 0 {
		info.Duration = d
	}
	return info, nil
}

func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// WriteFrame writes the frame at the given offset to dst as JPEG
func (f *FFmpeg) WriteFrame(ctx context.Context, videoPath string, at time.Duration, dst string) error {
	_, err := f.run(ctx, f.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", formatSeconds(at),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		dst,
	)
	if err != nil {
		return fmt.Errorf("%w: thumbnail for %s: %v", domain.ErrDecode, videoPath, err)
	}
	return nil
}

// WriteAudio re-encodes the first audio stream to Ogg Vorbis at 44.1 kHz
func (f *FFmpeg) WriteAudio(ctx context.Context, videoPath string, dst string) error {
	_, err := f.run(ctx, f.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-map", "0:a:0",
		"-vn",
		"-ar", strconv.Itoa(audioSampleRate),
		"-ac", "2",
		"-c:a", "libvorbis",
		"-f", "ogg",
		dst,
	)
	if err != nil {
		if strings.Contains(err.Error(), "matches no streams") {
			return fmt.Errorf("%w: %s", domain.ErrNoAudioTrack, videoPath)
		}
		return fmt.Errorf("%w: audio for %s: %v", domain.ErrDecode, videoPath, err)
	}
	return nil
}

// Open returns a frame handle for videoPath. Each frame request runs one
// short ffmpeg seek-and-decode.
func (f *FFmpeg) Open(videoPath string) (domain.FrameHandle, error) {
	info, err := os.Stat(videoPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPathNotFound, videoPath)
	}
	return &frameHandle{ffmpeg: f, path: videoPath}, nil
}

type frameHandle struct {
	ffmpeg *FFmpeg
	path   string
}

func (h *frameHandle) FrameAt(at time.Duration) (image.Image, error) {
	out, err := h.ffmpeg.run(context.Background(), h.ffmpeg.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(at),
		"-i", h.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: frame at %s: %v", domain.ErrDecode, at, err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: frame at %s: %v", domain.ErrDecode, at, err)
	}
	return img, nil
}

func (h *frameHandle) Close() error { return nil }

// run executes bin and returns stdout. Errors carry trimmed stderr.
func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	f.logger.Debug("ran decoder", "bin", bin, "args", args, "elapsed", time.Since(start), "error", err)
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(max(d, 0).Seconds(), 'f', 3, 64)
}
