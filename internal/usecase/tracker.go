package usecase

import (
	"sync"
	"time"

	"github.com/user/snapbot/internal/entity"
)

// Link statuses reported by Tracker.Status.
const (
	StatusProcessed   = "processed"
	StatusQuarantined = "quarantined"
	StatusNotFound    = "not_found"
)

// Tracker owns the processed set and the per-cycle error set. The loop is
// the only writer; the mutex exists for readers on the HTTP side server.
type Tracker struct {
	mu        sync.RWMutex
	state     *entity.SessionState
	errorSet  map[string]struct{}
	cycles    int64
	lastCycle time.Time
}

func NewTracker(state *entity.SessionState) *Tracker {
	if state == nil {
		state = entity.NewSessionState()
	}
	// Readers only hold the read lock, so the index must exist up front.
	state.BuildIndex()
	return &Tracker{
		state:    state,
		errorSet: make(map[string]struct{}),
	}
}

func (t *Tracker) IsProcessed(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.IsProcessed(url)
}

// MarkProcessed records url and returns a copy of the state to persist.
func (t *Tracker) MarkProcessed(url string) *entity.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.MarkProcessed(url)
	return t.state.Clone()
}

func (t *Tracker) IsQuarantined(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.errorSet[url]
	return ok
}

func (t *Tracker) Quarantine(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorSet[url] = struct{}{}
}

// ResetQuarantine empties the error set after a clean pass.
func (t *Tracker) ResetQuarantine() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.errorSet)
}

func (t *Tracker) cycleStarted(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycles++
	t.lastCycle = now
}

// Status reports what the loop knows about url.
func (t *Tracker) Status(url string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.IsProcessed(url) {
		return StatusProcessed
	}
	if _, ok := t.errorSet[url]; ok {
		return StatusQuarantined
	}
	return StatusNotFound
}

// Stats is a point-in-time summary for health reporting.
type Stats struct {
	Cycles      int64
	LastCycle   time.Time
	Processed   int
	Quarantined int
}

func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Cycles:      t.cycles,
		LastCycle:   t.lastCycle,
		Processed:   t.state.ProcessedCount(),
		Quarantined: len(t.errorSet),
	}
}
