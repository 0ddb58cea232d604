// Package monitor collects recent finger motion and renders it for the
// debug pages.
package monitor

import (
	"sort"
	"sync"

	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// DefaultRetired is how many lifted trails a collector keeps.
const DefaultRetired = 16

// Trail is the recent device-space path of one touch.
type Trail struct {
	Slot       int            `json:"slot"`
	Identifier int64          `json:"id"`
	Active     bool           `json:"active"`
	Points     []coords.Point `json:"points"`
}

// TrailCollector is a fingers.Observer that keeps the last N positions of
// every touch.
type TrailCollector struct {
	mu         sync.Mutex
	length     int
	maxRetired int
	active     map[int]*Trail // keyed by slot
	retired    []Trail        // oldest first
}

var _ fingers.Observer = (*TrailCollector)(nil)

// NewTrailCollector keeps up to length points per trail; length below 1 is
// treated as 1.
func NewTrailCollector(length int) *TrailCollector {
	if length < 1 {
		length = 1
	}
	return &TrailCollector{
		length:     length,
		maxRetired: DefaultRetired,
		active:     make(map[int]*Trail),
	}
}

func (c *TrailCollector) FingerDown(f fingers.Finger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[f.Slot] = &Trail{
		Slot:       f.Slot,
		Identifier: f.Identifier,
		Active:     true,
		Points:     []coords.Point{{X: f.ClientX, Y: f.ClientY}},
	}
}

func (c *TrailCollector) FingerMoved(f fingers.Finger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.active[f.Slot]
	if !ok {
		tr = &Trail{Slot: f.Slot, Identifier: f.Identifier, Active: true}
		c.active[f.Slot] = tr
	}
	tr.Points = append(tr.Points, coords.Point{X: f.ClientX, Y: f.ClientY})
	if over := len(tr.Points) - c.length; over > 0 {
		tr.Points = append(tr.Points[:0], tr.Points[over:]...)
	}
}

func (c *TrailCollector) FingerUp(f fingers.Finger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.active[f.Slot]
	if !ok {
		return
	}
	delete(c.active, f.Slot)
	tr.Active = false
	c.retired = append(c.retired, *tr)
	if over := len(c.retired) - c.maxRetired; over > 0 {
		c.retired = append(c.retired[:0], c.retired[over:]...)
	}
}

// Trails returns copies of the active trails ordered by slot, followed by
// the retired trails oldest first.
func (c *TrailCollector) Trails() []Trail {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Trail, 0, len(c.active)+len(c.retired))
	for _, tr := range c.active {
		out = append(out, copyTrail(*tr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	for _, tr := range c.retired {
		out = append(out, copyTrail(tr))
	}
	return out
}

// Reset drops every trail.
func (c *TrailCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[int]*Trail)
	c.retired = nil
}

func copyTrail(tr Trail) Trail {
	tr.Points = append([]coords.Point(nil), tr.Points...)
	return tr
}
