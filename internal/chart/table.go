package chart

import (
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TableRenderer prints the chart as a text table inside a <pre>, for
// terminals.
type TableRenderer struct{}

func (TableRenderer) Render(surface *html.Node, categories []string, series []Series, opts Options) (Handle, error) {
	if busy(surface) {
		return nil, ErrSurfaceBusy
	}
	if width(categories, series) == 0 {
		return nil, ErrNoData
	}

	var buf bytes.Buffer
	if opts.Title != "" {
		buf.WriteString(opts.Title + "\n")
	}
	if err := WriteTable(&buf, categories, series, opts); err != nil {
		return nil, err
	}

	pre := &html.Node{Type: html.ElementNode, DataAtom: atom.Pre, Data: "pre"}
	pre.AppendChild(&html.Node{Type: html.TextNode, Data: buf.String()})
	surface.AppendChild(pre)
	return &mark{surface: surface, nodes: []*html.Node{pre}}, nil
}

// WriteTable writes one row per category with a column per series. Missing
// points print as "-".
func WriteTable(w io.Writer, categories []string, series []Series, opts Options) error {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	header := []any{" "}
	for _, s := range series {
		header = append(header, s.Label)
	}
	table.Header(header...)

	n := width(categories, series)
	for i := 0; i < n; i++ {
		row := []any{label(categories, opts, i)}
		for _, s := range series {
			if i < len(s.Values) {
				row = append(row, opts.format(s.Values[i]))
			} else {
				row = append(row, "-")
			}
		}
		if err := table.Append(row...); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
