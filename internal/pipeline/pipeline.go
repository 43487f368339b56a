// Package pipeline turns a catalog link into audio files on disk: it
// classifies the link, expands it into tracks, fetches each track and
// normalizes the resulting folder.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"spotload/internal/logger"
	"spotload/internal/utils"
	"spotload/pkg/models"
)

const (
	DefaultQuality   = "320"
	UnknownArtistDir = "Unknown_Artist"
)

type Catalog interface {
	ResolveTrack(ctx context.Context, id string) (models.Track, error)
	ResolveAlbum(ctx context.Context, id string) (models.Collection, error)
	ResolvePlaylist(ctx context.Context, id string) (models.Collection, error)
	ResolveArtist(ctx context.Context, id string) ([]models.Track, error)
	Search(ctx context.Context, query string) (*models.Track, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, track models.Track, folder, quality string) models.FetchResult
}

type Normalizer interface {
	Normalize(ctx context.Context, folder string) error
}

type Reporter interface {
	TrackStarted(i, n int, track models.Track)
	TrackFinished(i, n int, track models.Track, r models.FetchResult)
	CollectionFinished(dest string, s models.Summary)
	LinkFailed(link string, err error)
	BatchProgress(completed, total int)
}

type Tagger interface {
	Tag(path string, track models.Track) error
}

type Options struct {
	// DefaultDir is used when a run is given no base folder.
	DefaultDir string
	// Tagger, when set, writes metadata into every downloaded file.
	Tagger Tagger
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// Result describes one finished run.
type Result struct {
	Reference   ResourceReference `json:"reference"`
	Name        string            `json:"name"`
	Destination string            `json:"destination"`
	Summary     models.Summary    `json:"summary"`
}

type Pipeline struct {
	catalog    Catalog
	fetcher    Fetcher
	normalizer Normalizer
	reporter   Reporter
	tagger     Tagger
	fs         afero.Fs
	defaultDir string
}

func New(catalog Catalog, fetcher Fetcher, normalizer Normalizer, reporter Reporter, opts Options) *Pipeline {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Pipeline{
		catalog:    catalog,
		fetcher:    fetcher,
		normalizer: normalizer,
		reporter:   reporter,
		tagger:     opts.Tagger,
		fs:         fs,
		defaultDir: opts.DefaultDir,
	}
}

// Run downloads everything link points at into baseFolder. Per-track
// failures are reported and skipped; only problems with the link itself,
// the filesystem or normalization are returned.
func (p *Pipeline) Run(ctx context.Context, link, baseFolder, quality string) error {
	_, err := p.RunWithSummary(ctx, link, baseFolder, quality)
	return err
}

// RunWithSummary is Run that also returns what was downloaded.
func (p *Pipeline) RunWithSummary(ctx context.Context, link, baseFolder, quality string) (Result, error) {
	ref := Classify(link)
	if ref.Kind == KindUnrecognized {
		return Result{Reference: ref}, fmt.Errorf("%w: %s", ErrUnsupportedLink, link)
	}

	base, err := p.ensureBase(baseFolder)
	if err != nil {
		return Result{Reference: ref}, err
	}

	start := time.Now()
	col, err := p.expand(ctx, ref)
	logger.LogOperation(fmt.Sprintf("expand %s %s", ref.Kind, ref.ID), start, err)
	if err != nil {
		return Result{Reference: ref}, err
	}

	return p.process(ctx, ref, col, base, quality)
}

// RunSearch looks up the best catalog match for query and downloads it like
// a single track link.
func (p *Pipeline) RunSearch(ctx context.Context, query, baseFolder, quality string) (Result, error) {
	ref := ResourceReference{Kind: KindTrack}

	base, err := p.ensureBase(baseFolder)
	if err != nil {
		return Result{Reference: ref}, err
	}

	track, err := p.catalog.Search(ctx, query)
	if err != nil {
		return Result{Reference: ref}, err
	}
	if track == nil {
		return Result{Reference: ref}, fmt.Errorf("%w: %q", ErrNoSearchResult, query)
	}
	logger.Info("Search '%s' matched '%s' by %s", query, track.Name, track.Artist)

	ref.ID = track.ID
	return p.process(ctx, ref, models.Collection{Name: track.Name, Tracks: []models.Track{*track}}, base, quality)
}

func (p *Pipeline) process(ctx context.Context, ref ResourceReference, col models.Collection, base, quality string) (Result, error) {
	if quality == "" {
		quality = DefaultQuality
	}

	dest := base
	if ref.Kind != KindTrack {
		dest = filepath.Join(base, utils.SanitizeFolderName(col.Name))
		if err := p.fs.MkdirAll(dest, 0755); err != nil {
			return Result{Reference: ref}, fmt.Errorf("failed to create folder %s: %w", dest, err)
		}
	}

	res := Result{Reference: ref, Name: col.Name, Destination: dest}
	n := len(col.Tracks)
	logger.Info("Downloading %d track(s) of %s '%s' to %s", n, ref.Kind, col.Name, dest)

	for i, track := range col.Tracks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		p.reporter.TrackStarted(i+1, n, track)
		r := p.fetcher.Fetch(ctx, track, dest, quality)
		if r.OK() {
			p.tag(r.Path, track)
		} else {
			logger.Warn("Skipping '%s' by %s: %s: %v", track.Name, track.Artist, r.Status, r.Err)
		}
		res.Summary.Record(r)
		p.reporter.TrackFinished(i+1, n, track, r)
	}

	if ref.Kind != KindTrack {
		if err := p.normalizer.Normalize(ctx, dest); err != nil {
			return res, err
		}
	}

	p.reporter.CollectionFinished(dest, res.Summary)
	return res, nil
}

func (p *Pipeline) expand(ctx context.Context, ref ResourceReference) (models.Collection, error) {
	switch ref.Kind {
	case KindTrack:
		track, err := p.catalog.ResolveTrack(ctx, ref.ID)
		if err != nil {
			return models.Collection{}, err
		}
		return models.Collection{Name: track.Name, Tracks: []models.Track{track}}, nil
	case KindAlbum:
		return p.catalog.ResolveAlbum(ctx, ref.ID)
	case KindPlaylist:
		return p.catalog.ResolvePlaylist(ctx, ref.ID)
	case KindArtist:
		tracks, err := p.catalog.ResolveArtist(ctx, ref.ID)
		if err != nil {
			return models.Collection{}, err
		}
		return models.Collection{Name: artistFolderName(tracks), Tracks: tracks}, nil
	default:
		return models.Collection{}, ErrUnsupportedLink
	}
}

func artistFolderName(tracks []models.Track) string {
	if len(tracks) == 0 || tracks[0].Artist == "" {
		return UnknownArtistDir
	}
	return tracks[0].Artist
}

func (p *Pipeline) ensureBase(baseFolder string) (string, error) {
	base := baseFolder
	if base == "" {
		base = p.defaultDir
	}
	if base == "" {
		base = "."
	}
	if err := p.fs.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("failed to create download folder %s: %w", base, err)
	}
	return base, nil
}

func (p *Pipeline) tag(path string, track models.Track) {
	if p.tagger == nil || path == "" {
		return
	}
	if err := p.tagger.Tag(path, track); err != nil {
		logger.Warn("Failed to tag '%s': %v", path, err)
	}
}
