package models

// Track is the normalized metadata for one playable catalog item.
// Artist holds the primary artist only.
type Track struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"duration_ms"`
}

// Collection is an album, playlist or artist expanded into its tracks.
type Collection struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PrimaryArtist returns the first listed artist name, or "" when there is none.
func PrimaryArtist(artists []Artist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
