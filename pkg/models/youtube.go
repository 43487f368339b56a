package models

// FetchStatus is the outcome of one acquisition attempt.
type FetchStatus int

const (
	FetchDownloaded FetchStatus = iota
	FetchNotFound
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchDownloaded:
		return "downloaded"
	case FetchNotFound:
		return "not found"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult describes what happened to a single track. It is never
// returned as an error: acquisition failures do not abort a collection.
type FetchResult struct {
	Status FetchStatus
	Path   string
	Title  string // title of the matched upload, when known
	Err    error
}

func (r FetchResult) OK() bool {
	return r.Status == FetchDownloaded
}
