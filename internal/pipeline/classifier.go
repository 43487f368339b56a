package pipeline

import "strings"

type Kind int

const (
	KindUnrecognized Kind = iota
	KindTrack
	KindAlbum
	KindPlaylist
	KindArtist
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	case KindArtist:
		return "artist"
	default:
		return "unrecognized"
	}
}

// ResourceReference is what a link points at.
type ResourceReference struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Checked in order: a link mentioning both "track" and "album" is a track.
var kindTokens = []Kind{KindTrack, KindAlbum, KindPlaylist, KindArtist}

// Classify works on the link text alone. The ID is the last path segment
// without its query string; the kind is the first of track, album, playlist,
// artist that appears anywhere in the link.
func Classify(link string) ResourceReference {
	ref := ResourceReference{ID: extractID(link)}
	for _, kind := range kindTokens {
		if strings.Contains(link, kind.String()) {
			ref.Kind = kind
			break
		}
	}
	return ref
}

func extractID(link string) string {
	id := link[strings.LastIndex(link, "/")+1:]
	if i := strings.Index(id, "?"); i >= 0 {
		id = id[:i]
	}
	return id
}
