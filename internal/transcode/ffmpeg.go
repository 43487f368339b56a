package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const FFmpegCommand = "ffmpeg"

// FFmpegArgs re-encodes the audio stream of src at the highest VBR quality.
func FFmpegArgs(src, dst string) []string {
	return []string{"-y", "-loglevel", "error", "-i", src, "-q:a", "0", "-map", "a", dst}
}

// FFmpeg runs a local ffmpeg binary.
type FFmpeg struct {
	Binary string
}

func (f FFmpeg) Convert(ctx context.Context, src, dst string) error {
	bin := f.Binary
	if bin == "" {
		bin = FFmpegCommand
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, FFmpegArgs(src, dst)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}
