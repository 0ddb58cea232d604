package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

func swipeFrames() []recorder.Frame {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	step := 100 * time.Millisecond
	return []recorder.Frame{
		{At: t0, Kind: "touchstart", Contacts: []fingers.Contact{{Identifier: 1, ClientX: 0, ClientY: 180}}},
		{At: t0.Add(step), Kind: "touchmove", Contacts: []fingers.Contact{{Identifier: 1, ClientX: 10, ClientY: 180}, {Identifier: 2, ClientX: 480, ClientY: 0}}},
		{At: t0.Add(2 * step), Kind: "touchmove", Contacts: []fingers.Contact{{Identifier: 1, ClientX: 30, ClientY: 180}, {Identifier: 2, ClientX: 480, ClientY: 0}}},
		{At: t0.Add(3 * step), Kind: "touchend", Contacts: []fingers.Contact{}},
	}
}

func TestSummarize(t *testing.T) {
	summaries, trails := Summarize(swipeFrames(), stage)

	require.Len(t, summaries, 2)
	first := summaries[0]
	assert.Equal(t, int64(1), first.Identifier)
	assert.Equal(t, 2, first.Samples)
	assert.InDelta(t, 150, first.MeanSpeed, 1e-9) // 100 then 200 units/s
	assert.InDelta(t, 200, first.MaxSpeed, 1e-9)
	assert.InDelta(t, 70.7106781, first.StdSpeed, 1e-6)
	assert.InDelta(t, 0.2, first.Duration, 1e-9)

	second := summaries[1]
	assert.Equal(t, int64(2), second.Identifier)
	assert.Equal(t, 1, second.Samples)
	assert.Zero(t, second.MeanSpeed)
	assert.Zero(t, second.StdSpeed)

	require.Len(t, trails, 2)
	assert.Len(t, trails[0].Points, 3)
	assert.False(t, trails[0].Active)
}

func TestSummarizeEmpty(t *testing.T) {
	summaries, trails := Summarize(nil, stage)
	assert.Empty(t, summaries)
	assert.Empty(t, trails)
}

func TestPlotTrails(t *testing.T) {
	_, trails := Summarize(swipeFrames(), stage)
	path := filepath.Join(t.TempDir(), "trails.png")

	require.NoError(t, PlotTrails(trails, stage, "swipe", path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, PlotTrails(trails, stage, "swipe", filepath.Join(t.TempDir(), "trails.unknown")))
}

func TestPlotTrailsMoreTrailsThanColors(t *testing.T) {
	trails := make([]Trail, 12)
	for i := range trails {
		trails[i] = Trail{
			Slot:       i + 1,
			Identifier: int64(i),
			Points:     []coords.Point{{X: float64(i * 10), Y: 20}, {X: float64(i*10 + 5), Y: 40}},
		}
	}
	path := filepath.Join(t.TempDir(), "many.svg")
	require.NoError(t, PlotTrails(trails, stage, "ten fingers and more", path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
