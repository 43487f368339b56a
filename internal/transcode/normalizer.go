// Package transcode converts leftover non-mp3 audio in a download folder to mp3.
package transcode

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"spotload/internal/logger"
)

const TargetExtension = ".mp3"

// SourceExtensions are the containers yt-dlp may leave behind when its own
// audio extraction did not run.
var SourceExtensions = []string{".webm", ".m4a", ".wav"}

// Converter turns src into dst. Both paths are in the same folder.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// NormalizationError reports the file a normalization pass stopped on.
type NormalizationError struct {
	File string
	Err  error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("failed to normalize %s: %v", e.File, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

type Normalizer struct {
	fs        afero.Fs
	converter Converter
}

func NewNormalizer(fs afero.Fs, converter Converter) *Normalizer {
	return &Normalizer{fs: fs, converter: converter}
}

// Normalize converts every source-format file directly inside folder to mp3
// and removes the original. It stops at the first failure; files converted
// before that stay converted.
func (n *Normalizer) Normalize(ctx context.Context, folder string) (err error) {
	start := time.Now()
	defer func() { logger.LogOperation("normalize "+folder, start, err) }()

	entries, err := afero.ReadDir(n.fs, folder)
	if err != nil {
		return fmt.Errorf("failed to read folder %s: %w", folder, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsSourceFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		src := filepath.Join(folder, entry.Name())
		dst := TargetPath(src)
		logger.Debug("Converting %s to %s", entry.Name(), filepath.Base(dst))

		if err := n.converter.Convert(ctx, src, dst); err != nil {
			return &NormalizationError{File: src, Err: err}
		}
		if err := n.fs.Remove(src); err != nil {
			return &NormalizationError{File: src, Err: fmt.Errorf("failed to remove original: %w", err)}
		}
	}
	return nil
}

func IsSourceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SourceExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// TargetPath swaps the extension of src for .mp3.
func TargetPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + TargetExtension
}
