package chart

import (
	"bytes"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("ff6384"),
	drawing.ColorFromHex("36a2eb"),
	drawing.ColorFromHex("4bc0c0"),
}

// SVGRenderer draws grouped bars with go-chart and inlines the SVG into the
// surface, followed by a value list that serves as tooltip text.
type SVGRenderer struct {
	Width  int
	Height int
}

func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{Width: 640, Height: 360}
}

func (r *SVGRenderer) Render(surface *html.Node, categories []string, series []Series, opts Options) (Handle, error) {
	if busy(surface) {
		return nil, ErrSurfaceBusy
	}
	bars := r.bars(categories, series, opts)
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	ticks := make([]gochart.Tick, 0)
	for _, v := range opts.ticks() {
		ticks = append(ticks, gochart.Tick{Value: v, Label: opts.format(v)})
	}
	lo := opts.Min
	if lo < 0 {
		lo = 0
	}
	bc := gochart.BarChart{
		Title:    opts.Title,
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 28,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: gochart.YAxis{
			Name:  opts.AxisTitle,
			Range: &gochart.ContinuousRange{Min: lo, Max: opts.Max},
			Ticks: ticks,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return opts.format(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(gochart.SVG, &buf); err != nil {
		return nil, err
	}
	nodes, err := html.ParseFragment(&buf, surface)
	if err != nil {
		return nil, err
	}

	m := &mark{surface: surface}
	for _, n := range nodes {
		surface.AppendChild(n)
		m.nodes = append(m.nodes, n)
	}
	tips := tooltips(categories, series, opts)
	surface.AppendChild(tips)
	m.nodes = append(m.nodes, tips)
	return m, nil
}

// bars interleaves the series per category. Only the first bar of a group
// carries the category label.
func (r *SVGRenderer) bars(categories []string, series []Series, opts Options) []gochart.Value {
	n := width(categories, series)
	out := make([]gochart.Value, 0, n*len(series))
	for i := 0; i < n; i++ {
		labelled := false
		for si, s := range series {
			if i >= len(s.Values) {
				continue
			}
			v := gochart.Value{
				Value: s.Values[i],
				Style: gochart.Style{
					FillColor:   palette[si%len(palette)].WithAlpha(128),
					StrokeColor: palette[si%len(palette)],
					StrokeWidth: 1,
				},
			}
			if !labelled {
				v.Label = label(categories, opts, i)
				labelled = true
			}
			out = append(out, v)
		}
	}
	return out
}

func tooltips(categories []string, series []Series, opts Options) *html.Node {
	dl := &html.Node{Type: html.ElementNode, DataAtom: atom.Dl, Data: "dl",
		Attr: []html.Attribute{{Key: "class", Val: "chart-values"}}}
	n := width(categories, series)
	for i := 0; i < n; i++ {
		dt := &html.Node{Type: html.ElementNode, DataAtom: atom.Dt, Data: "dt"}
		dt.AppendChild(&html.Node{Type: html.TextNode, Data: label(categories, opts, i)})
		dl.AppendChild(dt)
		for _, s := range series {
			if i >= len(s.Values) {
				continue
			}
			dd := &html.Node{Type: html.ElementNode, DataAtom: atom.Dd, Data: "dd"}
			dd.AppendChild(&html.Node{Type: html.TextNode, Data: s.Label + ": " + opts.format(s.Values[i])})
			dl.AppendChild(dd)
		}
	}
	return dl
}
