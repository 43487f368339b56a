package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spotload/internal/spotify"
	"spotload/pkg/models"
)

const trackID = "4uLU6hMCjMI75M1A2tKUQC"

type fakeCatalog struct {
	tracks    map[string]models.Track
	albums    map[string]models.Collection
	playlists map[string]models.Collection
	artists   map[string][]models.Track
	search    *models.Track
}

func (c *fakeCatalog) ResolveTrack(ctx context.Context, id string) (models.Track, error) {
	if len(id) != spotify.TrackIDLength {
		return models.Track{}, fmt.Errorf("%w: %q", spotify.ErrInvalidResourceID, id)
	}
	t, ok := c.tracks[id]
	if !ok {
		return models.Track{}, spotify.ErrNotFound
	}
	return t, nil
}

func (c *fakeCatalog) ResolveAlbum(ctx context.Context, id string) (models.Collection, error) {
	col, ok := c.albums[id]
	if !ok {
		return models.Collection{}, spotify.ErrNotFound
	}
	return col, nil
}

func (c *fakeCatalog) ResolvePlaylist(ctx context.Context, id string) (models.Collection, error) {
	col, ok := c.playlists[id]
	if !ok {
		return models.Collection{}, spotify.ErrNotFound
	}
	return col, nil
}

func (c *fakeCatalog) ResolveArtist(ctx context.Context, id string) ([]models.Track, error) {
	return c.artists[id], nil
}

func (c *fakeCatalog) Search(ctx context.Context, query string) (*models.Track, error) {
	return c.search, nil
}

type fetchCall struct {
	Track   models.Track
	Folder  string
	Quality string
}

// fakeFetcher writes "{name} - {artist}.mp3" unless the track name is in fail.
type fakeFetcher struct {
	fs    afero.Fs
	fail  map[string]bool
	calls []fetchCall
}

func (f *fakeFetcher) Fetch(ctx context.Context, track models.Track, folder, quality string) models.FetchResult {
	f.calls = append(f.calls, fetchCall{track, folder, quality})
	if f.fail[track.Name] {
		return models.FetchResult{Status: models.FetchNotFound, Err: errors.New("no match")}
	}
	path := filepath.Join(folder, track.Name+" - "+track.Artist+".mp3")
	if err := afero.WriteFile(f.fs, path, []byte("mp3"), 0644); err != nil {
		return models.FetchResult{Status: models.FetchFailed, Err: err}
	}
	return models.FetchResult{Status: models.FetchDownloaded, Path: path}
}

type fakeNormalizer struct {
	folders []string
	err     error
}

func (n *fakeNormalizer) Normalize(ctx context.Context, folder string) error {
	n.folders = append(n.folders, folder)
	return n.err
}

type fakeTagger struct {
	paths []string
}

func (t *fakeTagger) Tag(path string, track models.Track) error {
	t.paths = append(t.paths, path)
	return nil
}

type recordingReporter struct {
	started   []int
	finished  []models.FetchResult
	summaries []models.Summary
	dests     []string
	failed    []error
	batch     [][2]int
}

func (r *recordingReporter) TrackStarted(i, n int, t models.Track) { r.started = append(r.started, i) }
func (r *recordingReporter) TrackFinished(i, n int, t models.Track, res models.FetchResult) {
	r.finished = append(r.finished, res)
}
func (r *recordingReporter) CollectionFinished(dest string, s models.Summary) {
	r.dests = append(r.dests, dest)
	r.summaries = append(r.summaries, s)
}
func (r *recordingReporter) LinkFailed(link string, err error) { r.failed = append(r.failed, err) }
func (r *recordingReporter) BatchProgress(completed, total int) {
	r.batch = append(r.batch, [2]int{completed, total})
}

type harness struct {
	fs         afero.Fs
	catalog    *fakeCatalog
	fetcher    *fakeFetcher
	normalizer *fakeNormalizer
	reporter   *recordingReporter
	tagger     *fakeTagger
	pipeline   *Pipeline
}

func newHarness() *harness {
	fs := afero.NewMemMapFs()
	h := &harness{
		fs: fs,
		catalog: &fakeCatalog{
			tracks:    map[string]models.Track{},
			albums:    map[string]models.Collection{},
			playlists: map[string]models.Collection{},
			artists:   map[string][]models.Track{},
		},
		fetcher:    &fakeFetcher{fs: fs, fail: map[string]bool{}},
		normalizer: &fakeNormalizer{},
		reporter:   &recordingReporter{},
		tagger:     &fakeTagger{},
	}
	h.pipeline = New(h.catalog, h.fetcher, h.normalizer, h.reporter, Options{
		DefaultDir: "/default",
		Tagger:     h.tagger,
		Fs:         fs,
	})
	return h
}

func tracks(names ...string) []models.Track {
	out := make([]models.Track, len(names))
	for i, n := range names {
		out[i] = models.Track{Name: n, Artist: "Band", Album: "Record"}
	}
	return out
}

func isDir(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.DirExists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestRunSingleTrackGoesToBaseFolder(t *testing.T) {
	h := newHarness()
	h.catalog.tracks[trackID] = models.Track{Name: "Song", Artist: "Band"}

	res, err := h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/track/"+trackID+"?si=1", "/music", "192")
	require.NoError(t, err)

	require.Len(t, h.fetcher.calls, 1)
	assert.Equal(t, "/music", h.fetcher.calls[0].Folder)
	assert.Equal(t, "192", h.fetcher.calls[0].Quality)
	assert.Equal(t, "/music", res.Destination)
	assert.Empty(t, h.normalizer.folders, "single tracks are not normalized")

	exists, err := afero.Exists(h.fs, "/music/Song - Band.mp3")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []string{"/music/Song - Band.mp3"}, h.tagger.paths)
}

func TestRunInvalidTrackID(t *testing.T) {
	h := newHarness()

	for _, id := range []string{"abc123", trackID + "X"} {
		err := h.pipeline.Run(context.Background(), "https://open.spotify.com/track/"+id, "/music", "320")
		assert.ErrorIs(t, err, spotify.ErrInvalidResourceID)
	}
	assert.Empty(t, h.fetcher.calls)
}

func TestRunUnsupportedLink(t *testing.T) {
	h := newHarness()

	err := h.pipeline.Run(context.Background(), "https://example.com/show/123", "/music", "320")
	assert.ErrorIs(t, err, ErrUnsupportedLink)
	assert.Empty(t, h.fetcher.calls)
	assert.False(t, isDir(t, h.fs, "/music"), "nothing is created for an unsupported link")
}

func TestRunEmptyPlaylistStillNormalizes(t *testing.T) {
	h := newHarness()
	h.catalog.playlists["pl"] = models.Collection{Name: "Nothing Yet"}

	res, err := h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/playlist/pl", "/music", "320")
	require.NoError(t, err)

	assert.True(t, isDir(t, h.fs, "/music/Nothing Yet"))
	assert.Empty(t, h.fetcher.calls)
	assert.Equal(t, []string{"/music/Nothing Yet"}, h.normalizer.folders)
	assert.Equal(t, models.Summary{}, res.Summary)
}

func TestRunContinuesPastFailedTrack(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One", "Two", "Three")}
	h.fetcher.fail["Two"] = true

	res, err := h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/album/alb", "/music", "320")
	require.NoError(t, err)

	require.Len(t, h.fetcher.calls, 3)
	assert.Equal(t, "Three", h.fetcher.calls[2].Track.Name)
	assert.Equal(t, []int{1, 2, 3}, h.reporter.started)
	require.Len(t, h.reporter.finished, 3)
	assert.Equal(t, models.FetchNotFound, h.reporter.finished[1].Status)
	assert.Equal(t, []string{"/music/Record"}, h.normalizer.folders)
	assert.Equal(t, models.Summary{Attempted: 3, Downloaded: 2, Failed: 1}, res.Summary)
	assert.Len(t, h.tagger.paths, 2)
}

func TestRunSanitizesFolderName(t *testing.T) {
	h := newHarness()
	h.catalog.albums["acdc"] = models.Collection{Name: "AC/DC Hits", Tracks: tracks("Thunderstruck")}

	res, err := h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/album/acdc", "/music", "320")
	require.NoError(t, err)

	assert.Equal(t, "/music/AC_DC Hits", res.Destination)
	assert.True(t, isDir(t, h.fs, "/music/AC_DC Hits"))
	assert.Equal(t, "/music/AC_DC Hits", h.fetcher.calls[0].Folder)
}

func TestRunTwiceReusesFolder(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One")}

	link := "https://open.spotify.com/album/alb"
	require.NoError(t, h.pipeline.Run(context.Background(), link, "/music", "320"))
	require.NoError(t, h.pipeline.Run(context.Background(), link, "/music", "320"))
	assert.Len(t, h.fetcher.calls, 2)
}

func TestRunArtistFolderName(t *testing.T) {
	h := newHarness()
	h.catalog.artists["solo"] = []models.Track{{Name: "A", Artist: "Sigur Rós"}, {Name: "B", Artist: "Sigur Rós"}}

	res, err := h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/artist/solo", "/music", "320")
	require.NoError(t, err)
	assert.Equal(t, "/music/Sigur Rós", res.Destination)
	assert.Equal(t, "Sigur Rós", res.Name)

	res, err = h.pipeline.RunWithSummary(context.Background(), "https://open.spotify.com/artist/none", "/music", "320")
	require.NoError(t, err)
	assert.Equal(t, "/music/"+UnknownArtistDir, res.Destination)
	assert.True(t, isDir(t, h.fs, "/music/"+UnknownArtistDir))
}

func TestRunUsesDefaultFolderAndQuality(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One")}

	require.NoError(t, h.pipeline.Run(context.Background(), "https://open.spotify.com/album/alb", "", ""))

	assert.Equal(t, "/default/Record", h.fetcher.calls[0].Folder)
	assert.Equal(t, DefaultQuality, h.fetcher.calls[0].Quality)
}

func TestRunNormalizationFailure(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One")}
	h.normalizer.err = errors.New("ffmpeg exploded")

	err := h.pipeline.Run(context.Background(), "https://open.spotify.com/album/alb", "/music", "320")
	assert.EqualError(t, err, "ffmpeg exploded")
	assert.Empty(t, h.reporter.summaries)
}

func TestRunFilesystemFailure(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One")}
	h.pipeline.fs = afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := h.pipeline.Run(context.Background(), "https://open.spotify.com/album/alb", "/music", "320")
	assert.Error(t, err)
	assert.Empty(t, h.fetcher.calls)
}

func TestRunCancelledStopsLoop(t *testing.T) {
	h := newHarness()
	h.catalog.albums["alb"] = models.Collection{Name: "Record", Tracks: tracks("One", "Two")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.pipeline.Run(ctx, "https://open.spotify.com/album/alb", "/music", "320")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.fetcher.calls)
	assert.Empty(t, h.normalizer.folders)
}

func TestRunSearch(t *testing.T) {
	h := newHarness()
	h.catalog.search = &models.Track{ID: trackID, Name: "Hit", Artist: "Star"}

	res, err := h.pipeline.RunSearch(context.Background(), "hit star", "/music", "128")
	require.NoError(t, err)

	assert.Equal(t, KindTrack, res.Reference.Kind)
	assert.Equal(t, trackID, res.Reference.ID)
	require.Len(t, h.fetcher.calls, 1)
	assert.Equal(t, "/music", h.fetcher.calls[0].Folder)
	assert.Empty(t, h.normalizer.folders)
}

func TestRunSearchNoResult(t *testing.T) {
	h := newHarness()

	_, err := h.pipeline.RunSearch(context.Background(), "nothing", "/music", "320")
	assert.ErrorIs(t, err, ErrNoSearchResult)
	assert.Empty(t, h.fetcher.calls)
}
