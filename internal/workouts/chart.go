package workouts

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderWeeklyChart writes a standalone HTML page with a bar chart of the buckets.
func RenderWeeklyChart(w io.Writer, buckets []WeeklyBucket) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Weekly distance",
			Theme:     "macarons",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Weekly distance",
			Subtitle: "last 7 days, km",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "km",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)

	days := make([]string, 0, len(buckets))
	items := make([]opts.BarData, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, b.Name)
		items = append(items, opts.BarData{Value: b.Distance})
	}

	bar.SetXAxis(days).AddSeries("Distance", items)
	return bar.Render(w)
}
