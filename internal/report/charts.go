package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when a matrix has no row without NaN values.
var ErrNoData = errors.New("report: matrix has no defined rows")

// Named is a feature matrix with its plane name.
type Named struct {
	Name   string
	Matrix mat.Matrix
}

// WritePNG saves a bar chart of the mean histogram of m. The image format
// follows the extension of path.
func WritePNG(path, title string, m mat.Matrix) error {
	mean, n := MeanHistogram(m)
	if n == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (mean of %d frames)", title, n)
	p.X.Label.Text = "Bin"
	p.Y.Label.Text = "Frequency"

	bars, err := plotter.NewBarChart(plotter.Values(mean), vg.Points(2))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteHTML renders one line chart per matrix, each showing its mean
// histogram, as a standalone HTML page.
func WriteHTML(w io.Writer, title string, matrices []Named) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, nm := range matrices {
		mean, n := MeanHistogram(nm.Matrix)
		if n == 0 {
			return fmt.Errorf("%s: %w", nm.Name, ErrNoData)
		}
		x := make([]string, len(mean))
		y := make([]opts.LineData, len(mean))
		for i, v := range mean {
			x[i] = strconv.Itoa(i)
			y[i] = opts.LineData{Value: v}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: nm.Name, Subtitle: fmt.Sprintf("mean of %d frames", n)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Bin"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Frequency"}),
		)
		line.SetXAxis(x).AddSeries(nm.Name, y)
		page.AddCharts(line)
	}

	return page.Render(w)
}
