// Package coords maps device-space touch coordinates into the fixed logical
// stage used by every finger query.
//
// The logical stage spans x in [-240, 240] and y in [-180, 180] with y
// pointing up, independent of the device resolution. The reference rectangle
// may change between frames (a resizable surface), so callers pass the
// current rectangle to every mapping call; nothing here caches it.
package coords

import "math"

// Logical stage extents.
const (
	HalfWidth  = 240.0
	HalfHeight = 180.0
)

// Rect is a reference rectangle in device space (client pixels).
// Device y grows downward, so Top < Bottom for a normal surface.
type Rect struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Point is a pair of coordinates in either device or logical space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Width returns Right - Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Bottom - Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Valid reports whether every edge is finite and the rectangle has positive
// width and height.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.Left, r.Right, r.Top, r.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width() > 0 && r.Height() > 0
}

// Clamp limits x to [min, max]. NaN is returned unchanged.
func Clamp(min, x, max float64) float64 {
	return math.Max(math.Min(x, max), min)
}

// Scale linearly maps x from [srcMin, srcMax] onto [dstMin, dstMax].
// The result is not clamped. A zero-width source range maps to the middle of
// the destination range.
func Scale(x, srcMin, srcMax, dstMin, dstMax float64) float64 {
	if srcMax == srcMin {
		return (dstMin + dstMax) / 2
	}
	return (dstMax-dstMin)/(srcMax-srcMin)*(x-srcMin) + dstMin
}

// MapX maps a device x coordinate onto [-240, 240], clamped.
func (r Rect) MapX(clientX float64) float64 {
	return mapAxis(clientX, r.Left, r.Right, HalfWidth)
}

// MapY maps a device y coordinate onto [-180, 180], clamped. Device bottom
// maps to -180 and device top to 180.
func (r Rect) MapY(clientY float64) float64 {
	return mapAxis(clientY, r.Bottom, r.Top, HalfHeight)
}

// Map maps a device point into logical coordinates.
func (r Rect) Map(p Point) Point {
	return Point{X: r.MapX(p.X), Y: r.MapY(p.Y)}
}

func mapAxis(v, from, to, half float64) float64 {
	out := Clamp(-half, Scale(v, from, to, -half, half), half)
	if math.IsNaN(out) {
		return 0
	}
	return out
}
