package main

import (
	"fmt"
	"math"

	"github.com/banshee-data/multitouch/internal/feed"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// devScript builds a looping pinch gesture over bounds: a capabilities line,
// then two fingers that land, spread apart along the diagonal and lift.
// steps is the number of move frames.
func devScript(bounds coords.Rect, maxTouchPoints, steps int) []string {
	if steps < 1 {
		steps = 1
	}
	lines := []string{fmt.Sprintf(`{"max_touch_points":%d}`, maxTouchPoints)}

	cx := bounds.Left + bounds.Width()/2
	cy := bounds.Top + bounds.Height()/2
	reach := math.Min(bounds.Width(), bounds.Height()) * 0.4

	frame := func(kind string, spread float64) string {
		off := reach * spread / math.Sqrt2
		ev := feed.TouchEvent{Type: kind, Touches: []fingers.Contact{
			{Identifier: 0, ClientX: cx - off, ClientY: cy - off},
			{Identifier: 1, ClientX: cx + off, ClientY: cy + off},
		}}
		line, err := feed.EncodeTouchEvent(ev)
		if err != nil {
			panic(err) // contacts are plain numbers
		}
		return line
	}

	lines = append(lines, frame(feed.KindTouchStart, 0.1))
	for i := 1; i <= steps; i++ {
		lines = append(lines, frame(feed.KindTouchMove, 0.1+0.9*float64(i)/float64(steps)))
	}
	end, _ := feed.EncodeTouchEvent(feed.TouchEvent{Type: feed.KindTouchEnd})
	return append(lines, end)
}
