// Package surface models the host drawing surface the touch stage is mapped
// onto: its current bounding rectangle and the platform touch capability.
package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/multitouch/internal/touch/coords"
)

// ErrInvalidBounds is returned when a reference rectangle is not finite or
// has no area.
var ErrInvalidBounds = errors.New("invalid surface bounds")

// Surface is read on demand by queries; implementations may change their
// bounds between any two calls.
type Surface interface {
	Bounds() coords.Rect
	MaxTouchPoints() int
}

// Canvas is a resizable Surface, updated by the host (or the digitizer
// feed) whenever the drawing area moves or the device reports capabilities.
type Canvas struct {
	mu             sync.RWMutex
	bounds         coords.Rect
	maxTouchPoints int
}

// NewCanvas creates a canvas with the given bounds and touch capability.
func NewCanvas(bounds coords.Rect, maxTouchPoints int) (*Canvas, error) {
	c := &Canvas{}
	if err := c.SetBounds(bounds); err != nil {
		return nil, err
	}
	c.SetMaxTouchPoints(maxTouchPoints)
	return c, nil
}

// Bounds returns the current reference rectangle.
func (c *Canvas) Bounds() coords.Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds
}

// SetBounds replaces the reference rectangle.
func (c *Canvas) SetBounds(r coords.Rect) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidBounds, r)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bounds = r
	return nil
}

// MaxTouchPoints returns the platform-reported simultaneous touch limit.
func (c *Canvas) MaxTouchPoints() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxTouchPoints
}

// SetMaxTouchPoints records the platform capability. Negative values are
// stored as zero.
func (c *Canvas) SetMaxTouchPoints(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxTouchPoints = n
}

// TouchAvailable reports whether the platform supports touch at all.
func TouchAvailable(s Surface) bool {
	return s.MaxTouchPoints() > 0
}
