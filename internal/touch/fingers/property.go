package fingers

import (
	"time"

	"github.com/banshee-data/multitouch/internal/touch/coords"
)

// Property names a derived per-finger value.
type Property uint8

const (
	PropX        Property = iota // logical x position
	PropY                        // logical y position
	PropDX                       // logical x change since the previous frame
	PropDY                       // logical y change since the previous frame
	PropSX                       // logical x velocity, units per second
	PropSY                       // logical y velocity, units per second
	PropDuration                 // seconds since touch-down
	PropForce                    // raw platform pressure
)

var propertyNames = [...]string{
	PropX:        "x",
	PropY:        "y",
	PropDX:       "dx",
	PropDY:       "dy",
	PropSX:       "sx",
	PropSY:       "sy",
	PropDuration: "duration",
	PropForce:    "force",
}

// Properties returns every property in menu order.
func Properties() []Property {
	return []Property{PropX, PropY, PropDX, PropDY, PropSX, PropSY, PropDuration, PropForce}
}

// String returns the menu name of the property.
func (p Property) String() string {
	if int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return "unknown"
}

// ParseProperty resolves a menu name. It reports false for names outside the
// menu, which callers treat as an absent value.
func ParseProperty(name string) (Property, bool) {
	for i, n := range propertyNames {
		if n == name {
			return Property(i), true
		}
	}
	return 0, false
}

// Value derives prop for the finger against the current reference rectangle.
// now is the query time used for duration. The boolean is false when the
// value is absent (no platform force).
func (f *Finger) Value(prop Property, bounds coords.Rect, now time.Time) (float64, bool) {
	switch prop {
	case PropX:
		return bounds.MapX(f.ClientX), true
	case PropY:
		return bounds.MapY(f.ClientY), true
	case PropDX:
		return f.deltaX(bounds), true
	case PropDY:
		return f.deltaY(bounds), true
	case PropSX:
		return perSecond(f.deltaX(bounds), f.elapsed()), true
	case PropSY:
		return perSecond(f.deltaY(bounds), f.elapsed()), true
	case PropDuration:
		return now.Sub(f.DownAt).Seconds(), true
	case PropForce:
		if f.Force == nil {
			return 0, false
		}
		return *f.Force, true
	}
	return 0, false
}

func (f *Finger) deltaX(bounds coords.Rect) float64 {
	return bounds.MapX(f.ClientX) - bounds.MapX(f.PrevX)
}

func (f *Finger) deltaY(bounds coords.Rect) float64 {
	return bounds.MapY(f.ClientY) - bounds.MapY(f.PrevY)
}

// elapsed is the time between the two most recent frames of this finger.
func (f *Finger) elapsed() time.Duration {
	return f.NowAt.Sub(f.PrevAt)
}

// perSecond returns zero when no time has passed between frames.
func perSecond(delta float64, dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	return delta / dt.Seconds()
}
