package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/multitouch/internal/httputil"
	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/touch/coords"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// AttachAdminRoutes mounts the trail chart at /debug/touch/chart and the raw
// trails at /debug/touch/trails.
func (c *TrailCollector) AttachAdminRoutes(mux *http.ServeMux, s surface.Surface) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("touch/chart", "finger trails on the logical stage", c.ChartHandler(s))
	debug.HandleSilentFunc("touch/trails", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, c.Trails())
	})
}

// ChartHandler renders every trail as a scatter series in stage units,
// mapped through the surface bounds current at request time.
func (c *TrailCollector) ChartHandler(s surface.Surface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bounds := s.Bounds()
		trails := c.Trails()

		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Touch trails", Theme: "dark", Width: "960px", Height: "720px", AssetsHost: echartsAssetsPrefix}),
			charts.WithTitleOpts(opts.Title{Title: "Finger trails", Subtitle: fmt.Sprintf("trails=%d bounds=%gx%g", len(trails), bounds.Width(), bounds.Height())}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Min: -coords.HalfWidth, Max: coords.HalfWidth, Name: "x", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Min: -coords.HalfHeight, Max: coords.HalfHeight, Name: "y", NameLocation: "middle", NameGap: 30}),
		)

		for _, tr := range trails {
			data := make([]opts.ScatterData, 0, len(tr.Points))
			for _, p := range tr.Points {
				m := bounds.Map(p)
				data = append(data, opts.ScatterData{Value: []interface{}{m.X, m.Y}})
			}
			size := 4
			if tr.Active {
				size = 8
			}
			scatter.AddSeries(seriesName(tr), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}))
		}

		var buf bytes.Buffer
		if err := scatter.Render(&buf); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

func seriesName(tr Trail) string {
	state := "up"
	if tr.Active {
		state = "down"
	}
	return fmt.Sprintf("finger %d id %d (%s)", tr.Slot+1, tr.Identifier, state)
}
