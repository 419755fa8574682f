package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/lutefd/pongboard/internal/chart"
	"github.com/lutefd/pongboard/internal/client"
	"github.com/lutefd/pongboard/internal/dashboard"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/lutefd/pongboard/internal/page"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var svgPath string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the dashboard chart and the latest records",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&svgPath, "svg", "", "write the chart as SVG to this path instead of printing a table")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	catalog := locale.NewCatalog()
	strings := catalog.Lookup(lang)

	var renderer chart.Renderer = chart.TableRenderer{}
	if svgPath != "" {
		renderer = chart.NewSVGRenderer()
	}

	doc := page.New(strings.DashboardTitle)
	view, dispose, err := dashboard.Open(doc, dashboard.Deps{
		Credentials: dashboard.StaticCredential(token),
		Source:      client.New(serverURL),
		Charts:      renderer,
		Bus:         events.NewBus(),
		Locales:     catalog,
		Log:         zap.NewNop(),
	}, dashboard.State{})
	if err != nil {
		return err
	}
	defer dispose()

	if err := view.Render(cmd.Context(), strings); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if token == "" {
		fmt.Fprintln(out, "not signed in; run 'dashctl login <intra_id>' and pass --token")
		return nil
	}

	if svgPath != "" {
		if err := writeSurface(svgPath, view.Surface()); err != nil {
			return err
		}
		fmt.Fprintf(out, "chart written to %s\n", svgPath)
	} else {
		fmt.Fprint(out, page.TextContent(view.Surface()))
	}

	records := view.Snapshot().Records
	fmt.Fprintf(out, "\n%s\n", strings.RecordsTitle)
	if len(records.Lines) == 0 {
		fmt.Fprintln(out, strings.NoRecords)
	}
	for _, line := range records.Lines {
		fmt.Fprintf(out, "  %s\n", line)
	}
	if records.More != nil {
		fmt.Fprintf(out, "  [%s] dashctl records\n", records.More.Label)
	}
	return nil
}

// writeSurface writes the rendered chart nodes as a standalone file.
func writeSurface(path string, surface *html.Node) error {
	var buf bytes.Buffer
	for c := surface.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "svg" {
			if err := html.Render(&buf, c); err != nil {
				return fmt.Errorf("render svg: %w", err)
			}
		}
	}
	if buf.Len() == 0 {
		return fmt.Errorf("no chart was rendered")
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
