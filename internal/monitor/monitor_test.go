package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/testutil"
	"github.com/banshee-data/multitouch/internal/timeutil"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

var stage = coords.Rect{Left: 0, Right: 480, Top: 0, Bottom: 360}

func trackedCollector(length int) (*TrailCollector, *fingers.Tracker) {
	c := NewTrailCollector(length)
	tr := fingers.NewTracker(timeutil.NewMockClock(time.Unix(0, 0)))
	tr.SetObserver(c)
	return c, tr
}

func TestTrailCollectorLifecycle(t *testing.T) {
	c, tr := trackedCollector(3)

	tr.Reconcile([]fingers.Contact{{Identifier: 5, ClientX: 0, ClientY: 0}})
	tr.Reconcile([]fingers.Contact{{Identifier: 5, ClientX: 1, ClientY: 1}, {Identifier: 6, ClientX: 9, ClientY: 9}})
	tr.Reconcile([]fingers.Contact{{Identifier: 5, ClientX: 2, ClientY: 2}, {Identifier: 6, ClientX: 8, ClientY: 8}})
	tr.Reconcile([]fingers.Contact{{Identifier: 5, ClientX: 3, ClientY: 3}})

	want := []Trail{
		{Slot: 0, Identifier: 5, Active: true, Points: []coords.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}},
		{Slot: 1, Identifier: 6, Active: false, Points: []coords.Point{{X: 9, Y: 9}, {X: 8, Y: 8}}},
	}
	if diff := cmp.Diff(want, c.Trails()); diff != "" {
		t.Errorf("trails mismatch (-want +got):\n%s", diff)
	}

	c.Reset()
	if got := c.Trails(); len(got) != 0 {
		t.Errorf("Trails() after Reset = %v, want empty", got)
	}
}

func TestTrailCollectorCapsRetired(t *testing.T) {
	c, tr := trackedCollector(1)
	for i := 0; i < DefaultRetired+4; i++ {
		tr.Reconcile([]fingers.Contact{{Identifier: int64(i)}})
	}
	tr.Reconcile(nil)

	got := c.Trails()
	if len(got) != DefaultRetired {
		t.Fatalf("len(Trails()) = %d, want %d", len(got), DefaultRetired)
	}
	if got[len(got)-1].Identifier != DefaultRetired+3 {
		t.Errorf("newest retired id = %d, want %d", got[len(got)-1].Identifier, DefaultRetired+3)
	}
}

func TestTrailsAreCopies(t *testing.T) {
	c, tr := trackedCollector(4)
	tr.Reconcile([]fingers.Contact{{Identifier: 1, ClientX: 10}})

	got := c.Trails()
	got[0].Points[0].X = 99
	if c.Trails()[0].Points[0].X != 10 {
		t.Error("mutating a returned trail changed the collector")
	}
}

func TestNewTrailCollectorMinimumLength(t *testing.T) {
	c, tr := trackedCollector(0)
	tr.Reconcile([]fingers.Contact{{Identifier: 1, ClientX: 1}})
	tr.Reconcile([]fingers.Contact{{Identifier: 1, ClientX: 2}})
	if pts := c.Trails()[0].Points; len(pts) != 1 || pts[0].X != 2 {
		t.Errorf("points = %v, want only the latest", pts)
	}
}

func TestChartRoutes(t *testing.T) {
	c, tr := trackedCollector(8)
	tr.Reconcile([]fingers.Contact{{Identifier: 42, ClientX: 240, ClientY: 180}})

	canvas, err := surface.NewCanvas(stage, 10)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}
	mux := http.NewServeMux()
	c.AttachAdminRoutes(mux, canvas)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.NewLocalRequest(http.MethodGet, "/debug/touch/chart", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("chart status = %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "id 42") {
		t.Errorf("chart missing series name")
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.NewLocalRequest(http.MethodGet, "/debug/touch/trails", nil))
	var trails []Trail
	if err := json.NewDecoder(w.Body).Decode(&trails); err != nil {
		t.Fatalf("decode trails: %v", err)
	}
	if len(trails) != 1 || trails[0].Identifier != 42 {
		t.Errorf("trails = %+v", trails)
	}
}
