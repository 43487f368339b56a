package pipeline

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spotload/pkg/models"
)

func TestRunListContinuesPastBadLink(t *testing.T) {
	h := newHarness()
	h.catalog.tracks[trackID] = models.Track{Name: "Song", Artist: "Band"}
	list := "https://open.spotify.com/track/" + trackID + "\nnot a spotify link\n"
	require.NoError(t, afero.WriteFile(h.fs, "/links.txt", []byte(list), 0644))

	require.NoError(t, h.pipeline.RunList(context.Background(), "/links.txt", "/music", "320"))

	require.Len(t, h.fetcher.calls, 1)
	assert.Equal(t, "Song", h.fetcher.calls[0].Track.Name)
	require.Len(t, h.reporter.failed, 1)
	assert.ErrorIs(t, h.reporter.failed[0], ErrUnsupportedLink)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, h.reporter.batch)
}

func TestRunListSkipsBlankLines(t *testing.T) {
	h := newHarness()
	h.catalog.albums["a"] = models.Collection{Name: "A", Tracks: tracks("One")}
	h.catalog.playlists["p"] = models.Collection{Name: "P", Tracks: tracks("Two")}
	list := "\n  https://open.spotify.com/album/a  \n\n\thttps://open.spotify.com/playlist/p\n   \n"
	require.NoError(t, afero.WriteFile(h.fs, "/links.txt", []byte(list), 0644))

	require.NoError(t, h.pipeline.RunList(context.Background(), "/links.txt", "/music", "320"))

	assert.Len(t, h.fetcher.calls, 2)
	assert.Empty(t, h.reporter.failed)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, h.reporter.batch)
	assert.Equal(t, []string{"/music/A", "/music/P"}, h.normalizer.folders)
}

func TestRunListMissingFile(t *testing.T) {
	h := newHarness()

	err := h.pipeline.RunList(context.Background(), "/nope.txt", "/music", "320")
	assert.Error(t, err)
	assert.Empty(t, h.reporter.batch)
}

func TestRunListEmptyFile(t *testing.T) {
	h := newHarness()
	require.NoError(t, afero.WriteFile(h.fs, "/empty.txt", nil, 0644))

	require.NoError(t, h.pipeline.RunList(context.Background(), "/empty.txt", "/music", "320"))
	assert.Empty(t, h.reporter.batch)
	assert.Empty(t, h.fetcher.calls)
}
