// Package youtube finds and downloads the audio of a catalog track from
// YouTube through yt-dlp (via github.com/lrstanley/go-ytdlp).
package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"spotload/internal/logger"
	"spotload/internal/utils"
	"spotload/pkg/models"
)

const (
	AudioFormat  = "mp3"
	SearchPrefix = "ytsearch1:"
	AudioSelect  = "bestaudio/best"
)

// Options configures the yt-dlp invocation.
type Options struct {
	// Verbose lets yt-dlp log its own output; otherwise it runs with
	// --quiet --no-warnings.
	Verbose bool
	// Executable overrides the yt-dlp binary looked up on PATH.
	Executable string
}

type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// Install downloads a yt-dlp binary into the user cache when none is available.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Fetch searches for the track and downloads the best match into folder as
// "{name} - {artist}.mp3". Failures are reported in the result, never as a panic
// or error return, so a caller can keep going with the next track.
func (c *Client) Fetch(ctx context.Context, track models.Track, folder, quality string) models.FetchResult {
	start := time.Now()
	base := utils.TrackFileName(track)
	query := utils.CreateSearchQuery(track)

	logger.Debug("Searching YouTube for '%s'", query)
	result, err := c.command(folder, base, quality).Run(ctx, SearchPrefix+query)
	if ctx.Err() != nil {
		return models.FetchResult{Status: models.FetchFailed, Err: ctx.Err()}
	}

	// yt-dlp can exit non-zero after writing the file, so a file written by
	// this run decides. Older files with the same name do not count.
	path, ok := locateOutput(folder, base, start)
	if !ok {
		if err != nil {
			logger.LogOperation(fmt.Sprintf("fetch '%s'", query), start, err)
			return models.FetchResult{Status: models.FetchFailed, Err: fmt.Errorf("yt-dlp failed: %w", err)}
		}
		logger.Debug("yt-dlp produced no file for '%s'", query)
		return models.FetchResult{Status: models.FetchNotFound, Err: errors.New("no matching upload found")}
	}

	title := matchedTitle(result)
	if title != "" {
		utils.LogMatchDecision(track, title)
	}

	logger.LogOperation(fmt.Sprintf("fetch '%s'", query), start, nil)
	return models.FetchResult{Status: models.FetchDownloaded, Path: path, Title: title}
}

func (c *Client) command(folder, base, quality string) *ytdlp.Command {
	dl := ytdlp.New().
		Format(AudioSelect).
		ExtractAudio().
		AudioFormat(AudioFormat).
		AudioQuality(quality + "K").
		NoPlaylist().
		ForceOverwrites().
		NoMtime().
		IgnoreErrors().
		PrintJSON().
		Output(OutputTemplate(folder, base))

	if c.opts.Verbose {
		dl = dl.Verbose()
	} else {
		dl = dl.Quiet().NoWarnings()
	}
	if c.opts.Executable != "" {
		dl = dl.SetExecutable(c.opts.Executable)
	}
	return dl
}

// OutputTemplate returns the yt-dlp output template for a track saved under
// base in folder. Literal percent signs are escaped.
func OutputTemplate(folder, base string) string {
	return filepath.Join(folder, strings.ReplaceAll(base, "%", "%%")+".%(ext)s")
}

// locateOutput finds the file yt-dlp wrote for base at or after since. It is
// usually the mp3, but when audio extraction fails the original container is
// left behind for the normalization pass.
func locateOutput(folder, base string, since time.Time) (string, bool) {
	// Some filesystems keep modification times to the second.
	since = since.Truncate(time.Second)

	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", false
	}

	var fallback string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if strings.TrimSuffix(name, ext) != base || ext == ".part" || ext == ".ytdl" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(since) {
			continue
		}
		if strings.EqualFold(ext, "."+AudioFormat) {
			return filepath.Join(folder, name), true
		}
		fallback = filepath.Join(folder, name)
	}
	return fallback, fallback != ""
}

func matchedTitle(result *ytdlp.Result) string {
	if result == nil {
		return ""
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 || info[0].Title == nil {
		return ""
	}
	return *info[0].Title
}
