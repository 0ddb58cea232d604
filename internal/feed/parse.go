package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// Payload classes produced by ClassifyPayload.
const (
	EventTypeTouch        = "touch"
	EventTypeCapabilities = "capabilities"
	EventTypeBounds       = "bounds"
	EventTypeUnknown      = "unknown"
)

// Touch event kinds. Every kind carries the full set of active contacts, so
// the tracker treats them identically.
const (
	KindTouchStart  = "touchstart"
	KindTouchMove   = "touchmove"
	KindTouchEnd    = "touchend"
	KindTouchCancel = "touchcancel"
)

// TouchEvent is one platform notification.
type TouchEvent struct {
	Type    string            `json:"type"`
	Touches []fingers.Contact `json:"touches"`
}

// CapabilitiesLine announces the digitizer's simultaneous touch limit.
type CapabilitiesLine struct {
	MaxTouchPoints *int `json:"max_touch_points"`
}

// BoundsLine announces a new reference rectangle for the drawing surface.
type BoundsLine struct {
	Bounds *coords.Rect `json:"bounds"`
}

// ClassifyPayload inspects a payload line and returns its class token.
// Classification only looks at keys; decoding validates the rest.
func ClassifyPayload(payload string) string {
	p := strings.TrimSpace(payload)
	if !strings.HasPrefix(p, "{") {
		return EventTypeUnknown
	}
	switch {
	case strings.Contains(p, `"touches"`):
		return EventTypeTouch
	case strings.Contains(p, `"max_touch_points"`):
		return EventTypeCapabilities
	case strings.Contains(p, `"bounds"`):
		return EventTypeBounds
	}
	return EventTypeUnknown
}

// IsTouchKind reports whether kind is one of the platform touch event names.
func IsTouchKind(kind string) bool {
	switch kind {
	case KindTouchStart, KindTouchMove, KindTouchEnd, KindTouchCancel:
		return true
	}
	return false
}

// DecodeTouchEvent parses a touch event line.
func DecodeTouchEvent(payload string) (TouchEvent, error) {
	var ev TouchEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return TouchEvent{}, fmt.Errorf("failed to unmarshal touch event: %w", err)
	}
	if ev.Type == "" {
		ev.Type = KindTouchMove
	}
	if !IsTouchKind(ev.Type) {
		return TouchEvent{}, fmt.Errorf("unsupported touch event type %q", ev.Type)
	}
	return ev, nil
}

// EncodeTouchEvent renders ev as a single payload line without a trailing
// newline.
func EncodeTouchEvent(ev TouchEvent) (string, error) {
	if ev.Touches == nil {
		ev.Touches = []fingers.Contact{}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal touch event: %w", err)
	}
	return string(b), nil
}
