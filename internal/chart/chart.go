package chart

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

var (
	ErrSurfaceBusy = errors.New("chart: surface already holds a chart")
	ErrNoData      = errors.New("chart: nothing to draw")
)

// SurfaceClass marks the element a chart is drawn into.
const SurfaceClass = "chart-surface"

// Series is one named row of values. A series may carry more values than
// there are categories; the extra points are labelled from
// Options.TrailingLabels.
type Series struct {
	Label  string
	Values []float64
}

type Options struct {
	Title          string
	AxisTitle      string
	Min            float64
	Max            float64
	TickStep       float64
	Format         func(float64) string
	TrailingLabels []string
}

// PercentOptions is the 0..100 axis the dashboard draws on.
func PercentOptions(title, axisTitle string, trailing ...string) Options {
	return Options{
		Title:          title,
		AxisTitle:      axisTitle,
		Min:            0,
		Max:            100,
		TickStep:       20,
		Format:         Percent,
		TrailingLabels: trailing,
	}
}

func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// Handle is a live chart. Release detaches it from its surface.
type Handle interface {
	Release()
}

type Renderer interface {
	Render(surface *html.Node, categories []string, series []Series, opts Options) (Handle, error)
}

func (o Options) format(v float64) string {
	if o.Format == nil {
		return Percent(v)
	}
	return o.Format(v)
}

func (o Options) ticks() []float64 {
	step := o.TickStep
	if step <= 0 {
		step = 20
	}
	lo := o.Min
	if lo < 0 {
		lo = 0
	}
	hi := o.Max
	if hi <= lo {
		hi = lo + step
	}
	var out []float64
	for v := lo; v <= hi+1e-9; v += step {
		out = append(out, v)
	}
	return out
}

// label names the category at index i, falling back to the trailing labels
// for points past the last category.
func label(categories []string, opts Options, i int) string {
	if i < len(categories) {
		return categories[i]
	}
	j := i - len(categories)
	if j < len(opts.TrailingLabels) {
		return opts.TrailingLabels[j]
	}
	return ""
}

func width(categories []string, series []Series) int {
	n := len(categories)
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	return n
}

// mark owns the nodes a renderer attached to a surface.
type mark struct {
	surface *html.Node
	nodes   []*html.Node
}

func (m *mark) Release() {
	for _, n := range m.nodes {
		if n.Parent == m.surface {
			m.surface.RemoveChild(n)
		}
	}
	m.nodes = nil
}

func busy(surface *html.Node) bool {
	for c := surface.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}
