package pipeline

import "errors"

var (
	// ErrUnsupportedLink means the link names no track, album, playlist or artist.
	ErrUnsupportedLink = errors.New("unsupported link")
	ErrNoSearchResult  = errors.New("no track matches the query")
)
