// Package progress tracks how far a fetch run has come. A Tracker holds the
// shared (completed, total, label) state of every unit in a run and hands each
// change to a Notifier, which delivers snapshots to observers off the caller's
// goroutine.
package progress

import (
	"fmt"
	"sync"
)

// ItemResult classifies a processed item for the succeeded/failed counters
type ItemResult int

const (
	// ItemSucceeded means the source produced at least one file or was fully handled
	ItemSucceeded ItemResult = iota
	// ItemSkipped means the source was filtered out or every conflict was skipped
	ItemSkipped
	// ItemFailed means the source failed (clone, HTTP, write)
	ItemFailed
)

// Snapshot is an immutable copy of the tracker state
type Snapshot struct {
	// Completed counts attempted items, whatever their result
	Completed uint64
	// Total is the number of items all units of the run will attempt
	Total uint64
	// Label names the item being processed, empty once a unit finishes
	Label string

	Succeeded uint64
	Skipped   uint64
	Failed    uint64
}

// Done reports whether every item has been attempted
func (s Snapshot) Done() bool {
	return s.Completed == s.Total
}

// Fraction returns Completed/Total in [0, 1]
func (s Snapshot) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// String renders the snapshot as "completed/total label"
func (s Snapshot) String() string {
	if s.Label == "" {
		return fmt.Sprintf("%d/%d", s.Completed, s.Total)
	}
	return fmt.Sprintf("%d/%d %s", s.Completed, s.Total, s.Label)
}

// Tracker is the shared progress state of one run. All methods are safe for
// concurrent use; the lock is held only across the state update and the
// enqueue onto the notifier, never across observer calls.
type Tracker struct {
	mu        sync.Mutex
	completed uint64
	total     uint64
	label     string
	succeeded uint64
	skipped   uint64
	failed    uint64
	closed    bool

	notifier *Notifier
}

// NewTracker creates a tracker delivering every change to observers
func NewTracker(observers ...Observer) *Tracker {
	return &Tracker{notifier: NewNotifier(observers...)}
}

// AddTotal grows the run total. Units call it before any item is processed.
func (t *Tracker) AddTotal(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.total += n
	t.publishLocked()
}

// Forfeit takes back n items of the run total that will never be attempted,
// such as the items of a unit whose destination could not be created. The
// total never drops below the completed count.
func (t *Tracker) Forfeit(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || n == 0 {
		return
	}
	t.total -= min(n, t.total-t.completed)
	t.publishLocked()
}

// SetLabel records the item about to be processed
func (t *Tracker) SetLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.doneLocked() {
		return
	}
	t.label = label
	t.publishLocked()
}

// Complete counts one attempted item. It returns false when the run was
// already done, in which case nothing changes.
func (t *Tracker) Complete(result ItemResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.doneLocked() {
		return false
	}

	t.completed++
	switch result {
	case ItemSucceeded:
		t.succeeded++
	case ItemSkipped:
		t.skipped++
	case ItemFailed:
		t.failed++
	}
	t.publishLocked()
	return true
}

// Finish emits the end-of-unit update: counters unchanged, empty label
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.label = ""
	t.publishLocked()
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Done reports whether completed has reached total
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneLocked()
}

// Close stops accepting updates and waits until observers have seen every
// snapshot published so far
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.notifier.Close()
}

// doneLocked is only meaningful once a total has been announced
func (t *Tracker) doneLocked() bool {
	return t.total > 0 && t.completed == t.total
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Completed: t.completed,
		Total:     t.total,
		Label:     t.label,
		Succeeded: t.succeeded,
		Skipped:   t.skipped,
		Failed:    t.failed,
	}
}

func (t *Tracker) publishLocked() {
	t.notifier.Notify(t.snapshotLocked())
}
