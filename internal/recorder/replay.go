package recorder

import (
	"time"

	"github.com/banshee-data/multitouch/internal/timeutil"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// Replay feeds frames into tracker in order, setting clock to each frame's
// capture time first so durations and velocities match the live session.
// fn, when non-nil, is called after every frame is reconciled.
func Replay(frames []Frame, tracker *fingers.Tracker, clock *timeutil.MockClock, fn func(Frame)) {
	for _, f := range frames {
		clock.Set(f.At)
		tracker.Reconcile(f.Contacts)
		if fn != nil {
			fn(f)
		}
	}
}

// NewReplayTracker returns a tracker driven by a mock clock starting at the
// first frame's time.
func NewReplayTracker(frames []Frame) (*fingers.Tracker, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Time{})
	if len(frames) > 0 {
		clock.Set(frames[0].At)
	}
	return fingers.NewTracker(clock), clock
}
