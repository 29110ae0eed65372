package report

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

const histogramBins = 20

var barColor = color.RGBA{R: 0x44, G: 0x72, B: 0xC4, A: 0xFF}

func cycleTimeChart(path string, items []metrics.IssueMetric) error {
	values := make(plotter.Values, len(items))
	for i, m := range items {
		values[i] = float64(m.CycleTime)
	}
	return histogram(path, "Cycle Time Distribution", values)
}

func reviewTimeChart(path string, items []metrics.PullRequestMetric) error {
	values := make(plotter.Values, len(items))
	for i, m := range items {
		values[i] = float64(m.ReviewTime)
	}
	return histogram(path, "PR Review Time Distribution", values)
}

func weeklyThroughputChart(path string, weeks []ThroughputBucket) error {
	p := plot.New()
	p.Title.Text = "Weekly Throughput Trend"
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Completed Issues"

	pts := make(plotter.XYs, len(weeks))
	labels := make([]string, len(weeks))
	for i, w := range weeks {
		pts[i].X = float64(i)
		pts[i].Y = float64(w.Count)
		labels[i] = w.Label
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = barColor
	points.GlyphStyle.Color = barColor

	p.Add(line, points, plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.Y.Min = 0

	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

// contributorChart stacks completed-task counts above average cycle times.
func contributorChart(path string, contributors []ContributorStats) error {
	names := make([]string, len(contributors))
	counts := make(plotter.Values, len(contributors))
	cycles := make(plotter.Values, len(contributors))
	for i, c := range contributors {
		names[i] = c.Name
		counts[i] = float64(c.Completed)
		cycles[i] = c.AvgCycleTime
	}

	top, err := barPlot("Tasks Completed per Contributor", "Number of Tasks", names, counts)
	if err != nil {
		return err
	}
	bottom, err := barPlot("Average Cycle Time per Contributor", "Days", names, cycles)
	if err != nil {
		return err
	}

	img := vgimg.New(12*vg.Inch, 10*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	plots := [][]*plot.Plot{{top}, {bottom}}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	return savePNG(path, img)
}

func authorChart(path string, authors []AuthorStats) error {
	names := make([]string, len(authors))
	counts := make(plotter.Values, len(authors))
	for i, a := range authors {
		names[i] = a.Name
		counts[i] = float64(a.PullRequests)
	}

	p, err := barPlot("Pull Requests per Contributor", "Number of PRs", names, counts)
	if err != nil {
		return err
	}
	p.X.Label.Text = "Contributor"
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

func approvalRateChart(path string, rate float64) error {
	p, err := barPlot("Pull Request Approval Rate", "Percent", []string{
		fmt.Sprintf("Approved (%.1f%%)", rate),
		fmt.Sprintf("Not Approved (%.1f%%)", 100-rate),
	}, plotter.Values{rate, 100 - rate})
	if err != nil {
		return err
	}
	p.Y.Max = 100
	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

func histogram(path, title string, values plotter.Values) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Days"
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(values, histogramBins)
	if err != nil {
		return err
	}
	h.FillColor = barColor
	p.Add(h)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func barPlot(title, yLabel string, names []string, values plotter.Values) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.Y.Min = 0
	return p, nil
}

func savePNG(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}
