package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/multitouch/internal/monitoring"
	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/security"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
	"github.com/banshee-data/multitouch/internal/units"
)

func seedStore(t *testing.T) (string, string) {
	t.Helper()
	monitoring.SetLogger(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	store, err := recorder.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	sess, err := store.StartSession("drag", coords.Rect{Left: 0, Right: 480, Top: 0, Bottom: 360})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := t0.Add(time.Duration(i) * 50 * time.Millisecond)
		contacts := []fingers.Contact{{Identifier: 1, ClientX: float64(i * 10), ClientY: 100}}
		if err := store.RecordFrame(sess.ID, at, "touchmove", contacts); err != nil {
			t.Fatalf("RecordFrame failed: %v", err)
		}
	}
	return path, sess.ID
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-db", "x.db", "-session", "abc", "-json"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	want := Config{DBPath: "x.db", SessionID: "abc", Units: units.Stage, Timezone: "UTC", JSON: true}
	if cfg != want {
		t.Errorf("parseFlags = %+v, want %+v", cfg, want)
	}
	for _, args := range [][]string{{"-nope"}, {"-units", "mph"}, {"-tz", "Nowhere/Special"}} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v) should fail", args)
		}
	}
}

func TestRunPlotsNewestSession(t *testing.T) {
	path, id := seedStore(t)
	outPath := filepath.Join(t.TempDir(), "trail.png")

	var out bytes.Buffer
	if err := run(Config{DBPath: path, Output: outPath, Units: units.Stage}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), id) {
		t.Errorf("output missing session id: %s", out.String())
	}
	if !strings.Contains(out.String(), "200.0") {
		t.Errorf("output missing mean speed 200.0: %s", out.String())
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}
}

func TestRunJSON(t *testing.T) {
	path, id := seedStore(t)
	var out bytes.Buffer
	err := run(Config{DBPath: path, SessionID: id, Output: filepath.Join(t.TempDir(), "t.svg"), JSON: true}, &out)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got struct {
		Fingers []struct {
			Samples   int     `json:"samples"`
			MeanSpeed float64 `json:"mean_speed"`
		} `json:"fingers"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(got.Fingers) != 1 || got.Fingers[0].Samples != 4 {
		t.Errorf("fingers = %+v, want one finger with 4 samples", got.Fingers)
	}
}

func TestRunList(t *testing.T) {
	path, id := seedStore(t)
	var out bytes.Buffer
	if err := run(Config{DBPath: path, List: true}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "drag") {
		t.Errorf("list output = %s", out.String())
	}
}

func TestRunEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := run(Config{DBPath: path}, &bytes.Buffer{}); err == nil {
		t.Error("run on an empty store should fail")
	}
}

func TestRunDefaultOutputName(t *testing.T) {
	path, id := seedStore(t)
	dir := t.TempDir()
	t.Chdir(dir)

	if err := run(Config{DBPath: path}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := filepath.Join(dir, security.PlotFilename("drag", id, ".png"))
	if _, err := os.Stat(want); err != nil {
		t.Errorf("default plot %s not written: %v", want, err)
	}
}

func TestRunConvertsUnits(t *testing.T) {
	path, id := seedStore(t)
	var out bytes.Buffer
	cfg := Config{DBPath: path, SessionID: id, Output: filepath.Join(t.TempDir(), "w.png"), Units: units.Widths, JSON: true}
	if err := run(cfg, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got struct {
		Units   string `json:"units"`
		Fingers []struct {
			MeanSpeed float64 `json:"mean_speed"`
		} `json:"fingers"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.Units != units.Widths || len(got.Fingers) != 1 {
		t.Fatalf("output = %+v", got)
	}
	if m := got.Fingers[0].MeanSpeed; m < 0.41 || m > 0.42 {
		t.Errorf("mean speed = %g widths/s, want 200/480", m)
	}
}

func TestRunListTimezone(t *testing.T) {
	path, _ := seedStore(t)
	var out bytes.Buffer
	if err := run(Config{DBPath: path, List: true, Timezone: "Asia/Tokyo"}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "JST") {
		t.Errorf("list output not in Tokyo time: %s", out.String())
	}
}
