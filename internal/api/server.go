package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/multitouch/internal/blocks"
	"github.com/banshee-data/multitouch/internal/feed"
	"github.com/banshee-data/multitouch/internal/httputil"
	"github.com/banshee-data/multitouch/internal/monitoring"
	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SessionStore is the read side of the session recorder.
type SessionStore interface {
	Sessions() ([]recorder.Session, error)
	Session(id string) (recorder.Session, error)
	Frames(sessionID string) ([]recorder.Frame, error)
	DeleteSession(id string) error
}

type Server struct {
	tracker *fingers.Tracker
	canvas  *surface.Canvas
	ext     *blocks.Extension
	handler *feed.Handler
	store   SessionStore
}

// NewServer creates the API over a tracker, its canvas and the feed handler
// that snapshots posted to the API go through. store may be nil when
// recording is off.
func NewServer(tracker *fingers.Tracker, canvas *surface.Canvas, handler *feed.Handler, store SessionStore) *Server {
	return &Server{
		tracker: tracker,
		canvas:  canvas,
		ext:     blocks.New(tracker, canvas),
		handler: handler,
		store:   store,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/touch/capabilities", s.showCapabilities)
	mux.HandleFunc("/api/touch/status", s.showStatus)
	mux.HandleFunc("/api/touch/fingers", s.listFingers)
	mux.HandleFunc("/api/touch/fingers/", s.fingerRoutes)
	mux.HandleFunc("/api/touch/snapshot", s.postSnapshot)
	mux.HandleFunc("/api/touch/bounds", s.handleBounds)
	mux.HandleFunc("/api/blocks", s.showBlocks)
	mux.HandleFunc("/api/blocks/", s.callBlock)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/", s.sessionRoutes)
	return mux
}

func (s *Server) showCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"touch_available":  s.ext.TouchAvailable(),
		"max_touch_points": s.ext.MaxMultiTouch(),
	})
}

// Status is the tracker summary returned by /api/touch/status and by a
// posted snapshot.
type Status struct {
	ActiveCount    int           `json:"active_count"`
	TableLength    int           `json:"table_length"`
	TouchAvailable bool          `json:"touch_available"`
	MaxTouchPoints int           `json:"max_touch_points"`
	Bounds         coords.Rect   `json:"bounds"`
	Stats          fingers.Stats `json:"stats"`
}

func (s *Server) status() Status {
	return Status{
		ActiveCount:    s.tracker.ActiveCount(),
		TableLength:    s.tracker.TableLength(),
		TouchAvailable: s.ext.TouchAvailable(),
		MaxTouchPoints: s.ext.MaxMultiTouch(),
		Bounds:         s.canvas.Bounds(),
		Stats:          s.tracker.Stats(),
	}
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

// FingerView is one occupied slot with every derived property in logical
// stage units.
type FingerView struct {
	Index      int      `json:"index"`
	Identifier int64    `json:"id"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	DX         float64  `json:"dx"`
	DY         float64  `json:"dy"`
	SX         float64  `json:"sx"`
	SY         float64  `json:"sy"`
	Duration   float64  `json:"duration"`
	Force      *float64 `json:"force"`
}

func newFingerView(f *fingers.Finger, bounds coords.Rect, now time.Time) FingerView {
	v := FingerView{Index: f.Slot + 1, Identifier: f.Identifier}
	for _, p := range fingers.Properties() {
		val, ok := f.Value(p, bounds, now)
		switch p {
		case fingers.PropX:
			v.X = val
		case fingers.PropY:
			v.Y = val
		case fingers.PropDX:
			v.DX = val
		case fingers.PropDY:
			v.DY = val
		case fingers.PropSX:
			v.SX = val
		case fingers.PropSY:
			v.SY = val
		case fingers.PropDuration:
			v.Duration = val
		case fingers.PropForce:
			if ok {
				v.Force = &val
			}
		}
	}
	return v
}

func (s *Server) listFingers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	bounds := s.canvas.Bounds()
	now := s.tracker.Now()
	slots := s.tracker.Slots()

	views := make([]*FingerView, len(slots))
	for i, f := range slots {
		if f == nil {
			continue
		}
		v := newFingerView(f, bounds, now)
		views[i] = &v
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"table_length": len(slots),
		"fingers":      views,
	})
}

// fingerRoutes serves /api/touch/fingers/{index}[/{property}|/exists].
func (s *Server) fingerRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/touch/fingers/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		httputil.NotFound(w, "unknown finger route")
		return
	}
	indexArg := parts[0]

	if len(parts) == 2 {
		if parts[1] == "exists" {
			httputil.WriteJSONOK(w, map[string]bool{"exists": s.ext.FingerExists(indexArg)})
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"value": s.ext.PropOfFinger(parts[1], indexArg)})
		return
	}

	index, err := strconv.Atoi(indexArg)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid finger index %q", indexArg))
		return
	}
	f, ok := s.tracker.Finger(index)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("finger %d is not down", index))
		return
	}
	httputil.WriteJSONOK(w, newFingerView(&f, s.canvas.Bounds(), s.tracker.Now()))
}

func (s *Server) postSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var ev feed.TouchEvent
	if err := httputil.DecodeJSON(r, &ev); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if ev.Type == "" {
		ev.Type = feed.KindTouchMove
	}
	if !feed.IsTouchKind(ev.Type) {
		httputil.BadRequest(w, fmt.Sprintf("unsupported touch event type %q", ev.Type))
		return
	}
	if err := s.handler.HandleTouchEvent(ev); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.canvas.Bounds())
	case http.MethodPut:
		var rect coords.Rect
		if err := httputil.DecodeJSON(r, &rect); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.canvas.SetBounds(rect); err != nil {
			if errors.Is(err, surface.ErrInvalidBounds) {
				httputil.BadRequest(w, err.Error())
				return
			}
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, s.canvas.Bounds())
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.ext.Info())
}

// callBlock serves POST /api/blocks/{opcode}. The optional body is a JSON
// object of block arguments keyed by name.
func (s *Server) callBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	opcode := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/blocks/"), "/")

	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &args); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	result, err := s.ext.Call(opcode, args)
	if errors.Is(err, blocks.ErrUnknownOpcode) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"result": result})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "recording is disabled")
		return
	}
	sessions, err := s.store.Sessions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []recorder.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

// sessionRoutes serves GET and DELETE /api/sessions/{id} and
// GET /api/sessions/{id}/frames.
func (s *Server) sessionRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "recording is disabled")
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]

	if r.Method == http.MethodDelete {
		if len(parts) != 1 {
			httputil.MethodNotAllowed(w)
			return
		}
		s.deleteSession(w, id)
		return
	}

	sess, err := s.store.Session(id)
	if errors.Is(err, recorder.ErrSessionNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	switch {
	case len(parts) == 1:
		httputil.WriteJSONOK(w, sess)
	case len(parts) == 2 && parts[1] == "frames":
		frames, err := s.store.Frames(id)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to load frames: %v", err))
			return
		}
		if frames == nil {
			frames = []recorder.Frame{}
		}
		httputil.WriteJSONOK(w, frames)
	default:
		httputil.NotFound(w, "unknown session route")
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, id string) {
	err := s.store.DeleteSession(id)
	if errors.Is(err, recorder.ErrSessionNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to delete session: %v", err))
		return
	}
	monitoring.Logf("deleted session %s", id)
	w.WriteHeader(http.StatusNoContent)
}
