package fingers

import (
	"sync"
	"time"

	"github.com/banshee-data/multitouch/internal/timeutil"
	"github.com/banshee-data/multitouch/internal/touch/coords"
)

// Contact is one active touch point in a platform snapshot.
type Contact struct {
	// Identifier is the platform's touch id. It is only stable while the
	// physical touch persists and is reused after release.
	Identifier int64 `json:"id"`

	// ClientX and ClientY are absolute device coordinates.
	ClientX float64 `json:"x"`
	ClientY float64 `json:"y"`

	// Force is the normalised pressure, nil when the platform has none.
	Force *float64 `json:"force,omitempty"`
}

// Finger is the tracker's record of a touch that is currently down.
type Finger struct {
	Slot       int   // 0-based index in the slot table
	Identifier int64 // platform id bound to this slot

	ClientX, ClientY float64 // current device coordinates
	PrevX, PrevY     float64 // device coordinates of the previous frame
	Force            *float64

	DownAt time.Time // first touch-down
	PrevAt time.Time // previous frame
	NowAt  time.Time // current frame
}

func (f *Finger) clone() *Finger {
	c := *f
	if f.Force != nil {
		force := *f.Force
		c.Force = &force
	}
	return &c
}

// Observer receives slot lifecycle callbacks. Callbacks run synchronously
// inside Reconcile with the tracker lock held and must not call back into
// the tracker.
type Observer interface {
	FingerDown(f Finger)
	FingerMoved(f Finger)
	FingerUp(f Finger)
}

// Stats are running counters over the tracker's lifetime.
type Stats struct {
	Frames         int64     `json:"frames"`
	TouchesStarted int64     `json:"touches_started"`
	TouchesLifted  int64     `json:"touches_lifted"`
	PeakLength     int       `json:"peak_table_length"`
	LastReconcile  time.Time `json:"last_reconcile"`
}

// Tracker owns the slot table. A single RWMutex guards Reconcile and every
// query so a reader never observes a half-updated slot.
type Tracker struct {
	mu       sync.RWMutex
	clock    timeutil.Clock
	slots    []*Finger // nil marks an empty slot
	active   int
	stats    Stats
	observer Observer
}

// NewTracker creates an empty tracker. A nil clock uses the wall clock.
func NewTracker(clock timeutil.Clock) *Tracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Tracker{clock: clock}
}

// SetObserver installs o as the lifecycle observer; nil removes it.
func (t *Tracker) SetObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = o
}

// Reconcile merges a complete snapshot of the active contacts into the slot
// table. It must be called once per platform notification with every
// contact that is down, not a diff. Duplicate identifiers within one
// snapshot are outside the contract. It returns the frame time stamped on
// every updated finger.
func (t *Tracker) Reconcile(contacts []Contact) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	present := make(map[int64]struct{}, len(contacts))

	// Step 1: rotate bound slots, append unbound identifiers. This runs
	// before the release pass so a bound slot is never cleared spuriously.
	for _, c := range contacts {
		present[c.Identifier] = struct{}{}

		if idx := t.indexOf(c.Identifier); idx >= 0 {
			f := t.slots[idx]
			f.PrevX, f.PrevY = f.ClientX, f.ClientY
			f.PrevAt = f.NowAt
			f.ClientX, f.ClientY = c.ClientX, c.ClientY
			f.Force = c.Force
			f.NowAt = now
			if t.observer != nil {
				t.observer.FingerMoved(*f)
			}
			continue
		}

		f := &Finger{
			Slot:       len(t.slots),
			Identifier: c.Identifier,
			ClientX:    c.ClientX,
			ClientY:    c.ClientY,
			PrevX:      c.ClientX,
			PrevY:      c.ClientY,
			Force:      c.Force,
			DownAt:     now,
			PrevAt:     now,
			NowAt:      now,
		}
		t.slots = append(t.slots, f)
		t.stats.TouchesStarted++
		if t.observer != nil {
			t.observer.FingerDown(*f)
		}
	}

	// Step 2: release slots whose identifier left the snapshot.
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		if _, ok := present[f.Identifier]; !ok {
			t.slots[i] = nil
			t.stats.TouchesLifted++
			if t.observer != nil {
				t.observer.FingerUp(*f)
			}
		}
	}

	if len(t.slots) > t.stats.PeakLength {
		t.stats.PeakLength = len(t.slots)
	}

	// Step 3: trim trailing empty slots; interior ones keep their place.
	n := len(t.slots)
	for n > 0 && t.slots[n-1] == nil {
		n--
	}
	clear(t.slots[n:])
	t.slots = t.slots[:n]

	t.active = len(contacts)
	t.stats.Frames++
	t.stats.LastReconcile = now
	return now
}

// indexOf returns the slot bound to id, or -1.
func (t *Tracker) indexOf(id int64) int {
	for i, f := range t.slots {
		if f != nil && f.Identifier == id {
			return i
		}
	}
	return -1
}

// ActiveCount returns the number of contacts in the latest snapshot.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// TableLength returns the slot table length, which is also the highest
// addressable 1-based finger index.
func (t *Tracker) TableLength() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Exists reports whether the 1-based index addresses an occupied slot.
func (t *Tracker) Exists(index int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slot(index) != nil
}

// Query derives prop for the finger at the 1-based index using the current
// reference rectangle. It reports false for an out-of-range index, an empty
// slot, or a finger without force data.
func (t *Tracker) Query(index int, prop Property, bounds coords.Rect) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f := t.slot(index)
	if f == nil {
		return 0, false
	}
	return f.Value(prop, bounds, t.clock.Now())
}

// Finger returns a copy of the finger at the 1-based index.
func (t *Tracker) Finger(index int) (Finger, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f := t.slot(index)
	if f == nil {
		return Finger{}, false
	}
	return *f.clone(), true
}

// Slots returns a copy of the whole table; empty slots are nil.
func (t *Tracker) Slots() []*Finger {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Finger, len(t.slots))
	for i, f := range t.slots {
		if f != nil {
			out[i] = f.clone()
		}
	}
	return out
}

// Now returns the tracker clock's current time, the reference used for
// duration values.
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// Stats returns the running counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Reset clears the slot table and counters. The observer is kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = nil
	t.active = 0
	t.stats = Stats{}
}

// slot resolves a 1-based index; the caller holds mu.
func (t *Tracker) slot(index int) *Finger {
	i := index - 1
	if i < 0 || i >= len(t.slots) {
		return nil
	}
	return t.slots[i]
}
