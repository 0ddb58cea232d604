package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/multitouch/internal/feed"
	"github.com/banshee-data/multitouch/internal/monitoring"
	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/timeutil"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

var stage = coords.Rect{Left: 0, Right: 480, Top: 0, Bottom: 360}

type testEnv struct {
	tracker *fingers.Tracker
	canvas  *surface.Canvas
	clock   *timeutil.MockClock
	mux     *http.ServeMux
}

func setupServer(t *testing.T, store SessionStore) *testEnv {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	tracker := fingers.NewTracker(clock)
	canvas, err := surface.NewCanvas(stage, 10)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}
	handler := feed.NewHandler(tracker, canvas)
	srv := NewServer(tracker, canvas, handler, store)
	return &testEnv{tracker: tracker, canvas: canvas, clock: clock, mux: srv.ServeMux()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCapabilities(t *testing.T) {
	env := setupServer(t, nil)

	w := env.do(t, http.MethodGet, "/api/touch/capabilities", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	got := decode[map[string]interface{}](t, w)
	want := map[string]interface{}{"touch_available": true, "max_touch_points": 10.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}

	if w := env.do(t, http.MethodPost, "/api/touch/capabilities", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", w.Code)
	}
}

func TestSnapshotThenQuery(t *testing.T) {
	env := setupServer(t, nil)

	w := env.do(t, http.MethodPost, "/api/touch/snapshot", `{"type":"touchstart","touches":[{"id":7,"x":240,"y":180},{"id":9,"x":0,"y":360}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d: %s", w.Code, w.Body.String())
	}
	st := decode[Status](t, w)
	if st.ActiveCount != 2 || st.TableLength != 2 {
		t.Errorf("status = %+v, want 2 active, length 2", st)
	}

	env.clock.Advance(500 * time.Millisecond)
	env.do(t, http.MethodPost, "/api/touch/snapshot", `{"touches":[{"id":7,"x":300,"y":150}]}`)

	tests := []struct {
		path string
		want interface{}
	}{
		{"/api/touch/fingers/1/x", 60.0},
		{"/api/touch/fingers/1/y", 30.0},
		{"/api/touch/fingers/1/sx", 120.0},
		{"/api/touch/fingers/1/duration", 0.5},
		{"/api/touch/fingers/1/force", ""},
		{"/api/touch/fingers/1/pressure", ""},
		{"/api/touch/fingers/2/x", ""},
		{"/api/touch/fingers/0/x", ""},
		{"/api/touch/fingers/abc/x", ""},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, tt.path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", tt.path, w.Code)
			continue
		}
		got := decode[map[string]interface{}](t, w)
		if got["value"] != tt.want {
			t.Errorf("GET %s value = %#v, want %#v", tt.path, got["value"], tt.want)
		}
	}

	for path, want := range map[string]bool{
		"/api/touch/fingers/1/exists": true,
		"/api/touch/fingers/2/exists": false,
	} {
		got := decode[map[string]bool](t, env.do(t, http.MethodGet, path, ""))
		if got["exists"] != want {
			t.Errorf("GET %s exists = %v, want %v", path, got["exists"], want)
		}
	}
}

func TestFingerViews(t *testing.T) {
	env := setupServer(t, nil)
	f := 0.25
	env.tracker.Reconcile([]fingers.Contact{{Identifier: 1, ClientX: 480, ClientY: 0, Force: &f}, {Identifier: 2}})
	env.tracker.Reconcile([]fingers.Contact{{Identifier: 2}})

	w := env.do(t, http.MethodGet, "/api/touch/fingers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list struct {
		TableLength int           `json:"table_length"`
		Fingers     []*FingerView `json:"fingers"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if list.TableLength != 2 || len(list.Fingers) != 2 {
		t.Fatalf("list = %+v, want two slots", list)
	}
	if list.Fingers[0] != nil {
		t.Errorf("slot 1 should be empty, got %+v", list.Fingers[0])
	}
	want := &FingerView{Index: 2, Identifier: 2, X: -240, Y: 180}
	if diff := cmp.Diff(want, list.Fingers[1]); diff != "" {
		t.Errorf("slot 2 mismatch (-want +got):\n%s", diff)
	}

	w = env.do(t, http.MethodGet, "/api/touch/fingers/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET finger 2 status = %d", w.Code)
	}
	if diff := cmp.Diff(*want, decode[FingerView](t, w)); diff != "" {
		t.Errorf("finger 2 mismatch (-want +got):\n%s", diff)
	}

	for path, code := range map[string]int{
		"/api/touch/fingers/1":     http.StatusNotFound,
		"/api/touch/fingers/3":     http.StatusNotFound,
		"/api/touch/fingers/x":     http.StatusBadRequest,
		"/api/touch/fingers/":      http.StatusNotFound,
		"/api/touch/fingers/1/x/y": http.StatusNotFound,
	} {
		if w := env.do(t, http.MethodGet, path, ""); w.Code != code {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, code)
		}
	}
}

func TestSnapshotErrors(t *testing.T) {
	env := setupServer(t, nil)

	for _, body := range []string{
		`{"type":"pinch","touches":[]}`,
		`{"touches":`,
		`{"touches":[],"extra":1}`,
	} {
		if w := env.do(t, http.MethodPost, "/api/touch/snapshot", body); w.Code != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", body, w.Code)
		}
	}
	if w := env.do(t, http.MethodGet, "/api/touch/snapshot", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET snapshot status = %d, want 405", w.Code)
	}
}

type failingRecorder struct{}

func (failingRecorder) RecordFrame(time.Time, string, []fingers.Contact) error {
	return errors.New("disk full")
}

func TestSnapshotRecorderFailure(t *testing.T) {
	monitoring.SetLogger(t.Logf)
	defer monitoring.SetLogger(nil)

	tracker := fingers.NewTracker(nil)
	canvas, _ := surface.NewCanvas(stage, 1)
	handler := feed.NewHandler(tracker, canvas)
	handler.SetRecorder(failingRecorder{})
	mux := NewServer(tracker, canvas, handler, nil).ServeMux()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/touch/snapshot", strings.NewReader(`{"touches":[{"id":1}]}`)))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if tracker.ActiveCount() != 1 {
		t.Error("tracker should still reconcile when recording fails")
	}
}

func TestBounds(t *testing.T) {
	env := setupServer(t, nil)

	if got := decode[coords.Rect](t, env.do(t, http.MethodGet, "/api/touch/bounds", "")); got != stage {
		t.Errorf("GET bounds = %+v, want %+v", got, stage)
	}

	w := env.do(t, http.MethodPut, "/api/touch/bounds", `{"left":0,"right":960,"top":0,"bottom":720}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT bounds status = %d: %s", w.Code, w.Body.String())
	}
	if got := env.canvas.Bounds(); got.Right != 960 || got.Bottom != 720 {
		t.Errorf("canvas bounds = %+v after PUT", got)
	}

	for _, body := range []string{`{"left":10,"right":10,"top":0,"bottom":5}`, `not json`} {
		if w := env.do(t, http.MethodPut, "/api/touch/bounds", body); w.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", body, w.Code)
		}
	}
	if w := env.do(t, http.MethodDelete, "/api/touch/bounds", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE bounds status = %d, want 405", w.Code)
	}
}

func TestBlocks(t *testing.T) {
	env := setupServer(t, nil)
	env.tracker.Reconcile([]fingers.Contact{{Identifier: 3, ClientX: 0, ClientY: 360}})

	info := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/api/blocks", ""))
	if info["id"] != "skyhigh173touch" {
		t.Errorf("descriptor id = %v", info["id"])
	}

	tests := []struct {
		opcode string
		body   string
		want   interface{}
	}{
		{"touchAvailable", "", true},
		{"maxMultiTouch", "", 10.0},
		{"numOfFingers", "", 1.0},
		{"numOfFingersID", "{}", 1.0},
		{"propOfFinger", `{"PROP":"x","ID":1}`, -240.0},
		{"propOfFinger", `{"PROP":"y","ID":"1"}`, -180.0},
		{"propOfFinger", `{"PROP":"x","ID":2}`, ""},
		{"fingerExists", `{"ID":1}`, true},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodPost, "/api/blocks/"+tt.opcode, tt.body)
		if w.Code != http.StatusOK {
			t.Errorf("POST %s status = %d: %s", tt.opcode, w.Code, w.Body.String())
			continue
		}
		got := decode[map[string]interface{}](t, w)
		if got["result"] != tt.want {
			t.Errorf("POST %s %s result = %#v, want %#v", tt.opcode, tt.body, got["result"], tt.want)
		}
	}

	if w := env.do(t, http.MethodPost, "/api/blocks/bigAdd", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown opcode status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/blocks/propOfFinger", "[1]"); w.Code != http.StatusBadRequest {
		t.Errorf("non-object args status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/blocks/numOfFingers", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET opcode status = %d, want 405", w.Code)
	}
}

type memStore struct {
	sessions []recorder.Session
	frames   map[string][]recorder.Frame
}

func (m *memStore) Sessions() ([]recorder.Session, error) { return m.sessions, nil }

func (m *memStore) Session(id string) (recorder.Session, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return recorder.Session{}, recorder.ErrSessionNotFound
}

func (m *memStore) Frames(id string) ([]recorder.Frame, error) { return m.frames[id], nil }

func (m *memStore) DeleteSession(id string) error {
	for i, s := range m.sessions {
		if s.ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			delete(m.frames, id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", recorder.ErrSessionNotFound, id)
}

func TestSessions(t *testing.T) {
	store := &memStore{
		sessions: []recorder.Session{{ID: "abc", Label: "swipe", Bounds: stage, Frames: 1}},
		frames: map[string][]recorder.Frame{
			"abc": {{Seq: 1, Kind: feed.KindTouchStart, Contacts: []fingers.Contact{{Identifier: 1}}}},
		},
	}
	env := setupServer(t, store)

	list := decode[[]recorder.Session](t, env.do(t, http.MethodGet, "/api/sessions", ""))
	if len(list) != 1 || list[0].ID != "abc" {
		t.Errorf("sessions = %+v", list)
	}

	sess := decode[recorder.Session](t, env.do(t, http.MethodGet, "/api/sessions/abc", ""))
	if sess.Label != "swipe" {
		t.Errorf("session = %+v", sess)
	}

	frames := decode[[]recorder.Frame](t, env.do(t, http.MethodGet, "/api/sessions/abc/frames", ""))
	if len(frames) != 1 || frames[0].Kind != feed.KindTouchStart {
		t.Errorf("frames = %+v", frames)
	}

	for path, code := range map[string]int{
		"/api/sessions/nope":       http.StatusNotFound,
		"/api/sessions/abc/extras": http.StatusNotFound,
	} {
		if w := env.do(t, http.MethodGet, path, ""); w.Code != code {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, code)
		}
	}

	disabled := setupServer(t, nil)
	if w := disabled.do(t, http.MethodGet, "/api/sessions", ""); w.Code != http.StatusNotFound {
		t.Errorf("sessions without store status = %d, want 404", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	store := &memStore{
		sessions: []recorder.Session{{ID: "abc"}, {ID: "def"}},
		frames:   map[string][]recorder.Frame{"abc": {{Seq: 1}}},
	}
	env := setupServer(t, store)

	tests := []struct {
		path string
		want int
	}{
		{"/api/sessions/abc", http.StatusNoContent},
		{"/api/sessions/abc", http.StatusNotFound},
		{"/api/sessions/def/frames", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		if w := env.do(t, http.MethodDelete, tt.path, ""); w.Code != tt.want {
			t.Errorf("DELETE %s status = %d, want %d", tt.path, w.Code, tt.want)
		}
	}

	list := decode[[]recorder.Session](t, env.do(t, http.MethodGet, "/api/sessions", ""))
	if len(list) != 1 || list[0].ID != "def" {
		t.Errorf("sessions after delete = %+v, want only def", list)
	}
	if w := env.do(t, http.MethodPut, "/api/sessions/def", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d, want 405", w.Code)
	}

	disabled := setupServer(t, nil)
	if w := disabled.do(t, http.MethodDelete, "/api/sessions/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("DELETE without store status = %d, want 404", w.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, format)
	})
	defer monitoring.SetLogger(nil)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/touch/status", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", w.Code)
	}
	if len(logged) != 1 {
		t.Fatalf("logged %d lines, want 1", len(logged))
	}
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); got != tt.want {
			t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
