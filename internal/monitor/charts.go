package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// handleObjectsChart renders the latest fused objects as an XY scatter. Each
// point carries the packed velocity components as extra dimensions so the
// tooltip shows them.
func (ws *WebServer) handleObjectsChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	latest := ws.latest
	ws.mu.RUnlock()

	data := make([]opts.ScatterData, 0, len(latest.Objects))
	maxAbs := 0.0
	for _, o := range latest.Objects {
		vx, vy := o.Unpack()
		x, y := float64(o.X), float64(o.Y)
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(x), math.Abs(y)))
		data = append(data, opts.ScatterData{
			Name:  o.TrackID,
			Value: []interface{}{x, y, vx, vy},
		})
	}

	pad := maxAbs * 1.1
	if pad == 0 {
		pad = 1024
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fused objects", Theme: "dark", Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fused objects",
			Subtitle: fmt.Sprintf("seq=%d count=%d valid=%t", latest.Seq, latest.Count, latest.Valid),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("objects", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// residualPlot draws the mean post-correction residual per tick.
func (ws *WebServer) residualPlot() (*plot.Plot, error) {
	ws.mu.RLock()
	pts := make(plotter.XYs, len(ws.residuals))
	for i, p := range ws.residuals {
		pts[i] = plotter.XY{X: float64(p.Seq), Y: p.Mean}
	}
	ws.mu.RUnlock()

	p := plot.New()
	p.Title.Text = "Mean correction residual"
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "residual"
	p.Add(plotter.NewGrid())

	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
	}
	return p, nil
}

func (ws *WebServer) handleResidualPlot(w http.ResponseWriter, r *http.Request) {
	p, err := ws.residualPlot()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build plot: %v", err))
		return
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
