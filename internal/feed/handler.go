// Package feed is the transport layer between a platform touch source and
// the finger tracker: it decodes payload lines and reconciles each touch
// notification exactly once.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/multitouch/internal/monitoring"
	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// Recorder captures raw snapshots after they are reconciled.
type Recorder interface {
	RecordFrame(at time.Time, kind string, contacts []fingers.Contact) error
}

// LineSource delivers payload lines to subscribers; serialmux.SerialMux and
// its disabled and mock variants satisfy it.
type LineSource interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// Handler routes payload lines to the tracker and the canvas.
type Handler struct {
	tracker *fingers.Tracker
	canvas  *surface.Canvas

	mu       sync.Mutex
	recorder Recorder
}

// NewHandler creates a Handler feeding tracker and canvas.
func NewHandler(tracker *fingers.Tracker, canvas *surface.Canvas) *Handler {
	return &Handler{tracker: tracker, canvas: canvas}
}

// SetRecorder installs r to capture every reconciled snapshot; nil stops
// recording.
func (h *Handler) SetRecorder(r Recorder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorder = r
}

// HandleEvent classifies and applies one payload line. Unknown lines are
// logged and ignored.
func (h *Handler) HandleEvent(payload string) error {
	switch ClassifyPayload(payload) {
	case EventTypeTouch:
		ev, err := DecodeTouchEvent(payload)
		if err != nil {
			return fmt.Errorf("failed to handle touch event: %w", err)
		}
		return h.HandleTouchEvent(ev)
	case EventTypeCapabilities:
		if err := h.handleCapabilities(payload); err != nil {
			return fmt.Errorf("failed to handle capabilities: %w", err)
		}
	case EventTypeBounds:
		if err := h.handleBounds(payload); err != nil {
			return fmt.Errorf("failed to handle bounds: %w", err)
		}
	default:
		monitoring.Logf("unknown feed line: %s", payload)
	}
	return nil
}

// HandleTouchEvent reconciles one notification and records it. The tracker
// is always updated; a recorder failure is returned afterwards.
func (h *Handler) HandleTouchEvent(ev TouchEvent) error {
	at := h.tracker.Reconcile(ev.Touches)
	monitoring.Debugf("%s: %d contacts, table length %d", ev.Type, len(ev.Touches), h.tracker.TableLength())

	h.mu.Lock()
	rec := h.recorder
	h.mu.Unlock()
	if rec == nil {
		return nil
	}
	if err := rec.RecordFrame(at, ev.Type, ev.Touches); err != nil {
		return fmt.Errorf("failed to record frame: %w", err)
	}
	return nil
}

func (h *Handler) handleCapabilities(payload string) error {
	var line CapabilitiesLine
	if err := json.Unmarshal([]byte(payload), &line); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if line.MaxTouchPoints == nil {
		return fmt.Errorf("missing max_touch_points")
	}
	h.canvas.SetMaxTouchPoints(*line.MaxTouchPoints)
	monitoring.Logf("digitizer reports %d touch points", *line.MaxTouchPoints)
	return nil
}

func (h *Handler) handleBounds(payload string) error {
	var line BoundsLine
	if err := json.Unmarshal([]byte(payload), &line); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if line.Bounds == nil {
		return fmt.Errorf("missing bounds")
	}
	return h.canvas.SetBounds(*line.Bounds)
}

// Run subscribes to src and handles lines until ctx is cancelled or the
// subscription channel closes.
func (h *Handler) Run(ctx context.Context, src LineSource) error {
	id, c := src.Subscribe()
	defer src.Unsubscribe(id)

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return nil
			}
			if err := h.HandleEvent(payload); err != nil {
				monitoring.Logf("error handling feed line: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
