package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/dhvani-data/annotation.report/internal/httputil"
)

// echartsAssetsPrefix is where the chart pages load the echarts
// runtime from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// labelChart renders a bar chart of the consensus label distribution,
// for one batch when ?batch= is given, otherwise for the whole store.
func (s *Server) labelChart(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("batch")

	var nonToxic, toxic int64
	if name != "" {
		batch, err := s.db.GetBatchByName(name)
		if err != nil {
			httputil.NotFound(w, fmt.Sprintf("Failed to find batch %q: %v", name, err))
			return
		}
		labels, err := s.db.ListAggregatedLabelsForBatch(batch.BatchID)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve labels: %v", err))
			return
		}
		for _, label := range labels {
			if label.Label == 1 {
				toxic++
			} else {
				nonToxic++
			}
		}
	} else {
		stats, err := s.db.AnalyseAggregation(r.Context(), s.cfg.GetLowAgreementWarning())
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve aggregation stats: %v", err))
			return
		}
		nonToxic = stats.LabelCounts[0]
		toxic = stats.LabelCounts[1]
	}

	total := nonToxic + toxic
	if total == 0 {
		httputil.NotFound(w, "no aggregated labels available")
		return
	}

	scope := name
	if scope == "" {
		scope = "all batches"
	}

	x := []string{"non-toxic", "toxic"}
	y := []opts.BarData{
		{Value: nonToxic},
		{Value: toxic},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Consensus Label Distribution", Subtitle: fmt.Sprintf("%s, %d labels", scope, total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("labels", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// kappaChart renders pairwise Cohen's kappa for a batch as a scatter:
// shared task count on X, kappa on Y, colour by kappa. Degenerate
// pairs have no defined kappa and are left off the plot.
func (s *Server) kappaChart(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("batch")
	if name == "" {
		httputil.BadRequest(w, "Missing 'batch' parameter")
		return
	}

	report, status, msg := s.agreementForBatch(name)
	if report == nil {
		httputil.WriteJSONError(w, status, msg)
		return
	}

	data := make([]opts.ScatterData, 0, len(report.PairKappas))
	maxShared := 0
	for _, pair := range report.PairKappas {
		if pair.Kappa == nil {
			continue
		}
		if pair.NTasks > maxShared {
			maxShared = pair.NTasks
		}
		data = append(data, opts.ScatterData{
			Name:  pair.AnnotatorA + " vs " + pair.AnnotatorB,
			Value: []interface{}{pair.NTasks, *pair.Kappa, *pair.Kappa},
		})
	}

	pad := float64(maxShared) * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pairwise Kappa", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Pairwise Cohen's Kappa", Subtitle: fmt.Sprintf("batch=%s pairs=%d mean=%.3f", name, len(data), report.MeanKappa)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: pad, Name: "Shared tasks", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: 1, Name: "Cohen's kappa", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("pairs", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render kappa chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// annotatorChart renders per-annotator accuracy against the gold set
// as a bar chart, scoped to ?batch= when given.
func (s *Server) annotatorChart(w http.ResponseWriter, r *http.Request) {
	dashboard, status, msg := s.scoreDashboard(r.URL.Query().Get("batch"))
	if dashboard == nil {
		httputil.WriteJSONError(w, status, msg)
		return
	}

	x := make([]string, 0, len(dashboard.Scores))
	y := make([]opts.BarData, 0, len(dashboard.Scores))
	for _, score := range dashboard.Scores {
		x = append(x, score.AnnotatorID)
		y = append(y, opts.BarData{Value: score.Accuracy})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Annotator Accuracy", Subtitle: fmt.Sprintf("gold=%d annotators=%d floor=%.2f", dashboard.GoldItems, dashboard.Annotators, dashboard.AccuracyFloor)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Accuracy"}),
	)
	bar.SetXAxis(x).
		AddSeries("accuracy", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
