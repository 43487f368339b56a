package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"spotload/internal/logger"
	"spotload/pkg/models"
)

const (
	AuthURL = "https://accounts.spotify.com/api/token"
	BaseURL = "https://api.spotify.com/v1"

	TrackIDLength = 22
	pageSize      = 50
)

var (
	ErrInvalidResourceID = errors.New("invalid resource ID")
	ErrNotFound          = errors.New("resource not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(clientID, clientSecret string) *Client {
	return NewClientWithEndpoints(clientID, clientSecret, AuthURL, BaseURL)
}

// NewClientWithEndpoints builds a client against custom token and API
// endpoints. Tokens are fetched lazily and refreshed on expiry.
func NewClientWithEndpoints(clientID, clientSecret, authURL, baseURL string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     authURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	httpClient := cfg.Client(context.Background())
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	logger.LogHTTPRequest(req.Method, endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidResourceID, endpoint)
	case resp.StatusCode >= 400:
		return fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type paging[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// fetchAll walks an offset/limit paged endpoint until total is reached.
func fetchAll[T any](ctx context.Context, c *Client, endpoint func(offset, limit int) string) ([]T, error) {
	var all []T
	offset := 0

	for {
		var page paging[T]
		if err := c.getJSON(ctx, endpoint(offset, pageSize), &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Total {
			break
		}
	}

	return all, nil
}

type apiTrack struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Artists  []models.Artist `json:"artists"`
	Duration int             `json:"duration_ms"`
	Album    struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (t apiTrack) toModel() models.Track {
	return models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artist:     models.PrimaryArtist(t.Artists),
		Album:      t.Album.Name,
		DurationMs: t.Duration,
	}
}

type apiAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []models.Artist `json:"artists"`
}

// ResolveTrack fetches a single track. The ID must be a 22 character base62 ID.
func (c *Client) ResolveTrack(ctx context.Context, id string) (models.Track, error) {
	if len(id) != TrackIDLength {
		return models.Track{}, fmt.Errorf("%w: track ID %q must be %d characters", ErrInvalidResourceID, id, TrackIDLength)
	}

	var track apiTrack
	if err := c.getJSON(ctx, "/tracks/"+url.PathEscape(id), &track); err != nil {
		return models.Track{}, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return track.toModel(), nil
}

// ResolveAlbum returns the album name and its tracks in album order.
// Every track is credited to the album's primary artist.
func (c *Client) ResolveAlbum(ctx context.Context, id string) (models.Collection, error) {
	var album apiAlbum
	if err := c.getJSON(ctx, "/albums/"+url.PathEscape(id), &album); err != nil {
		return models.Collection{}, fmt.Errorf("failed to get album %s: %w", id, err)
	}

	tracks, err := c.albumTracks(ctx, album)
	if err != nil {
		return models.Collection{}, err
	}
	return models.Collection{Name: album.Name, Tracks: tracks}, nil
}

func (c *Client) albumTracks(ctx context.Context, album apiAlbum) ([]models.Track, error) {
	items, err := fetchAll[apiTrack](ctx, c, func(offset, limit int) string {
		return fmt.Sprintf("/albums/%s/tracks?offset=%d&limit=%d", url.PathEscape(album.ID), offset, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get tracks of album %s: %w", album.ID, err)
	}

	artist := models.PrimaryArtist(album.Artists)
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, models.Track{
			ID:         item.ID,
			Name:       item.Name,
			Artist:     artist,
			Album:      album.Name,
			DurationMs: item.Duration,
		})
	}
	return tracks, nil
}

// ResolvePlaylist returns the playlist name and its tracks in playlist order.
// Local files and removed tracks (null entries) are skipped.
func (c *Client) ResolvePlaylist(ctx context.Context, id string) (models.Collection, error) {
	var playlist struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/playlists/%s?fields=name", url.PathEscape(id)), &playlist); err != nil {
		return models.Collection{}, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	type item struct {
		Track *apiTrack `json:"track"`
	}
	items, err := fetchAll[item](ctx, c, func(offset, limit int) string {
		return fmt.Sprintf("/playlists/%s/tracks?offset=%d&limit=%d", url.PathEscape(id), offset, limit)
	})
	if err != nil {
		return models.Collection{}, fmt.Errorf("failed to get tracks of playlist %s: %w", id, err)
	}

	tracks := make([]models.Track, 0, len(items))
	for _, it := range items {
		if it.Track == nil || it.Track.Name == "" {
			continue
		}
		tracks = append(tracks, it.Track.toModel())
	}
	return models.Collection{Name: playlist.Name, Tracks: tracks}, nil
}

// ResolveArtist aggregates the tracks of every album and single released by
// the artist, in the order the catalog lists those releases.
func (c *Client) ResolveArtist(ctx context.Context, id string) ([]models.Track, error) {
	albums, err := fetchAll[apiAlbum](ctx, c, func(offset, limit int) string {
		return fmt.Sprintf("/artists/%s/albums?include_groups=album,single&offset=%d&limit=%d", url.PathEscape(id), offset, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get albums of artist %s: %w", id, err)
	}
	logger.Debug("Artist %s has %d albums and singles", id, len(albums))

	var all []models.Track
	for _, album := range albums {
		tracks, err := c.albumTracks(ctx, album)
		if err != nil {
			return nil, err
		}
		all = append(all, tracks...)
	}
	return all, nil
}

// Search returns the best ranked track for a free-text query, or nil.
func (c *Client) Search(ctx context.Context, query string) (*models.Track, error) {
	var result struct {
		Tracks paging[apiTrack] `json:"tracks"`
	}
	endpoint := fmt.Sprintf("/search?type=track&limit=1&q=%s", url.QueryEscape(query))
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}

	if len(result.Tracks.Items) == 0 {
		return nil, nil
	}
	track := result.Tracks.Items[0].toModel()
	return &track, nil
}
