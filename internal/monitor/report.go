package monitor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// FingerSummary describes one touch from a replayed session. Speeds are in
// stage units per second.
type FingerSummary struct {
	Slot       int     `json:"slot"`
	Identifier int64   `json:"id"`
	Samples    int     `json:"samples"`
	MeanSpeed  float64 `json:"mean_speed"`
	StdSpeed   float64 `json:"std_speed"`
	MaxSpeed   float64 `json:"max_speed"`
	Duration   float64 `json:"duration"`
}

type touchKey struct {
	slot int
	id   int64
}

// Summarize replays frames through a fresh tracker and returns per-touch
// speed statistics, in order of touch-down, along with every complete trail.
// Frames where a finger has just landed carry no velocity and are skipped.
func Summarize(frames []recorder.Frame, bounds coords.Rect) ([]FingerSummary, []Trail) {
	collector := NewTrailCollector(len(frames) + 1)
	collector.maxRetired = math.MaxInt
	tracker, clock := recorder.NewReplayTracker(frames)
	tracker.SetObserver(collector)

	var order []touchKey
	speeds := make(map[touchKey][]float64)
	durations := make(map[touchKey]float64)

	recorder.Replay(frames, tracker, clock, func(fr recorder.Frame) {
		for _, f := range tracker.Slots() {
			if f == nil {
				continue
			}
			k := touchKey{slot: f.Slot, id: f.Identifier}
			if _, seen := durations[k]; !seen {
				order = append(order, k)
			}
			durations[k], _ = f.Value(fingers.PropDuration, bounds, fr.At)
			if !f.PrevAt.Before(f.NowAt) {
				continue
			}
			sx, _ := f.Value(fingers.PropSX, bounds, fr.At)
			sy, _ := f.Value(fingers.PropSY, bounds, fr.At)
			speeds[k] = append(speeds[k], math.Hypot(sx, sy))
		}
	})

	out := make([]FingerSummary, 0, len(order))
	for _, k := range order {
		s := speeds[k]
		sum := FingerSummary{Slot: k.slot, Identifier: k.id, Samples: len(s), Duration: durations[k]}
		if len(s) > 0 {
			sum.MeanSpeed = stat.Mean(s, nil)
			sum.MaxSpeed = s[0]
			for _, v := range s[1:] {
				sum.MaxSpeed = math.Max(sum.MaxSpeed, v)
			}
		}
		if len(s) > 1 {
			sum.StdSpeed = stat.StdDev(s, nil)
		}
		out = append(out, sum)
	}
	return out, collector.Trails()
}

// PlotTrails draws every trail on the logical stage and saves it to path;
// the image format follows the file extension.
func PlotTrails(trails []Trail, bounds coords.Rect, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = -coords.HalfWidth, coords.HalfWidth
	p.Y.Min, p.Y.Max = -coords.HalfHeight, coords.HalfHeight
	p.Add(plotter.NewGrid())

	for i, tr := range trails {
		pts := make(plotter.XYs, 0, len(tr.Points))
		for _, pt := range tr.Points {
			m := bounds.Map(pt)
			pts = append(pts, plotter.XY{X: m.X, Y: m.Y})
		}
		if len(pts) == 0 {
			continue
		}
		line, scatter, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("trail %d: %w", i, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		scatter.Color = line.Color
		scatter.Shape = draw.CircleGlyph{}
		scatter.Radius = vg.Points(1.5)
		p.Add(line, scatter)
		p.Legend.Add(seriesName(tr), line)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save trail plot: %w", err)
	}
	return nil
}
