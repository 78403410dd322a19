package export

import (
	"errors"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/pendulum3d/internal/sim"
)

var axisColors = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// WritePNG plots the x, y and z coordinates of bob 2 against time and
// encodes the chart as PNG. Size is in inches at 100 dpi.
func WritePNG(w io.Writer, samples []sim.Sample, title string, widthIn, heightIn float64) error {
	if len(samples) == 0 {
		return errors.New("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "bob 2 position"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	coords := []struct {
		name string
		get  func(sim.Sample) float64
	}{
		{"x", func(s sim.Sample) float64 { return s.P2.X }},
		{"y", func(s sim.Sample) float64 { return s.P2.Y }},
		{"z", func(s sim.Sample) float64 { return s.P2.Z }},
	}
	for i, c := range coords {
		pts := make(plotter.XYs, len(samples))
		for j, s := range samples {
			pts[j].X = s.Time
			pts[j].Y = c.get(s)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = axisColors[i]
		p.Add(line)
		p.Legend.Add(c.name, line)
	}

	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(100),
	)
	p.Draw(draw.New(canvas))

	_, err := vgimg.PngCanvas{Canvas: canvas}.WriteTo(w)
	return err
}
