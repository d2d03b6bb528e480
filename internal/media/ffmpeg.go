package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnsupportedFormat is returned before any process is spawned when a
// conversion target is not one of alac, m4a, aac, flac, wav or mp3.
var ErrUnsupportedFormat = errors.New("unsupported audio convert format")

// FFmpeg runs the ffmpeg binary for remuxing and transcoding.
//
// Availability is resolved once, when the value is built.
type FFmpeg struct {
	binary    string
	available bool
	detail    string
}

// NewFFmpeg resolves binary on PATH (or as given) and records whether it
// can be used. An empty binary means "ffmpeg".
func NewFFmpeg(binary string) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	f := &FFmpeg{binary: binary}
	if path, err := exec.LookPath(binary); err != nil {
		f.detail = fmt.Sprintf("binary %q not found", binary)
	} else {
		f.binary = path
		f.available = true
	}
	return f
}

// Name implements Remuxer.
func (f *FFmpeg) Name() string { return "ffmpeg" }

// Available implements Remuxer.
func (f *FFmpeg) Available() bool { return f.available }

// Detail explains why the binary is unavailable.
func (f *FFmpeg) Detail() string { return f.detail }

// Remux implements Remuxer with a stream copy of the first audio track.
func (f *FFmpeg) Remux(ctx context.Context, src, dst string) error {
	if !f.available {
		return fmt.Errorf("ffmpeg unavailable: %s", f.detail)
	}
	return f.run(ctx, RemuxArgs(src, dst))
}

// Transcode converts src into dst in the given format.
func (f *FFmpeg) Transcode(ctx context.Context, src, dst, format string) error {
	args, err := TranscodeArgs(format, src, dst)
	if err != nil {
		return err
	}
	if !f.available {
		return fmt.Errorf("ffmpeg unavailable: %s", f.detail)
	}
	if err := f.run(ctx, args); err != nil {
		return err
	}
	if !nonEmpty(dst) {
		return fmt.Errorf("ffmpeg produced no output for %s", format)
	}
	return nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("run ffmpeg: %w", err)
	}
	return nil
}

// RemuxArgs returns the ffmpeg arguments for a stream copy of the first
// audio track of src into dst.
func RemuxArgs(src, dst string) []string {
	return []string{"-y", "-v", "error", "-i", src, "-map", "0:a:0", "-c:a", "copy", dst}
}

// TranscodeArgs returns the ffmpeg arguments converting src into dst.
//
//	alac, m4a, aac -> ALAC
//	flac           -> FLAC
//	wav            -> 16 bit PCM
//	mp3            -> LAME VBR quality 2
func TranscodeArgs(format, src, dst string) ([]string, error) {
	args := []string{"-y", "-i", src}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "alac", "m4a", "aac":
		args = append(args, "-c:a", "alac")
	case "flac":
		args = append(args, "-c:a", "flac")
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return append(args, dst), nil
}
