package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"spotload/internal/pipeline"
	"spotload/pkg/models"
)

// Tracker records pipeline progress for the status endpoint and forwards
// every event to the next reporter.
type Tracker struct {
	next pipeline.Reporter

	mu      sync.RWMutex
	current *RunInfo
	last    *RunInfo
}

var _ pipeline.Reporter = (*Tracker)(nil)

func NewTracker(next pipeline.Reporter) *Tracker {
	return &Tracker{next: next}
}

// Begin starts a new run and returns its ID.
func (t *Tracker) Begin(input string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	t.mu.Lock()
	t.current = &RunInfo{ID: id.String(), Input: input, StartedAt: time.Now()}
	t.mu.Unlock()
	return id.String()
}

// End closes the current run, keeping it as the last one.
func (t *Tracker) End(res pipeline.Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return
	}
	now := time.Now()
	t.current.FinishedAt = &now
	t.current.Summary = res.Summary
	if res.Destination != "" {
		t.current.Destination = res.Destination
	}
	if err != nil {
		t.current.Error = err.Error()
	}
	t.last, t.current = t.current, nil
}

func (t *Tracker) Status() StatusResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return StatusResponse{
		Busy:    t.current != nil,
		Current: copyRun(t.current),
		Last:    copyRun(t.last),
	}
}

func (t *Tracker) update(fn func(r *RunInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		fn(t.current)
	}
}

func (t *Tracker) TrackStarted(i, n int, track models.Track) {
	t.update(func(r *RunInfo) {
		r.Index, r.Total, r.Track = i, n, track.Name+" - "+track.Artist
	})
	if t.next != nil {
		t.next.TrackStarted(i, n, track)
	}
}

func (t *Tracker) TrackFinished(i, n int, track models.Track, res models.FetchResult) {
	t.update(func(r *RunInfo) { r.Summary.Record(res) })
	if t.next != nil {
		t.next.TrackFinished(i, n, track, res)
	}
}

func (t *Tracker) CollectionFinished(dest string, s models.Summary) {
	t.update(func(r *RunInfo) { r.Destination = dest })
	if t.next != nil {
		t.next.CollectionFinished(dest, s)
	}
}

func (t *Tracker) LinkFailed(link string, err error) {
	if t.next != nil {
		t.next.LinkFailed(link, err)
	}
}

func (t *Tracker) BatchProgress(completed, total int) {
	if t.next != nil {
		t.next.BatchProgress(completed, total)
	}
}

func copyRun(r *RunInfo) *RunInfo {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
