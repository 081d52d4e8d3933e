package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"covid-impact-pipeline/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newChartCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chart <id> [selector]",
		Short: "Print the data of a chart for one selector value",
		Long: `Build the pipeline and print what the chart would render for the given
selector value. Without a selector the chart default is used. Without an id
the registered charts are listed.`,
		Example: `  pipeline chart gdp-line Unemployment
  pipeline chart cpi-series Overall --json`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.build(cmd.Context(), "")
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				renderCharts(w, p.Charts())
				return nil
			}

			selector := ""
			if len(args) == 2 {
				selector = args[1]
			}
			data, err := p.ChartData(args[0], selector)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			}
			renderChartData(w, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the chart data as JSON")

	return cmd
}

func renderCharts(w io.Writer, charts []model.ChartInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Chart", "Kind", "Dataset", "Default", "Selectors"})
	for _, c := range charts {
		t.AppendRow(table.Row{c.ID, c.Kind, c.Dataset, c.Default, strings.Join(c.Selectors, ", ")})
	}
	t.Render()
}

func renderChartData(w io.Writer, data *model.ChartData) {
	_, _ = fmt.Fprintf(w, "%s (%s) %s = %s\n", data.Chart, data.Kind, data.Dataset, data.Selector)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	switch data.Kind {
	case model.ChartContinentLine:
		t.AppendHeader(table.Row{"Continent", "Year", "Metric", "Value", "Count"})
		for _, r := range data.Aggregates {
			t.AppendRow(table.Row{r.Continent, r.Year, r.Metric, r.Value, r.Count})
		}
	case model.ChartEntityDelta:
		t.AppendHeader(table.Row{"Entity", "Continent", "Metric", "From", "To", "Change"})
		for _, r := range data.Deltas {
			t.AppendRow(table.Row{r.Entity, r.Continent, r.Metric, r.FromYear, r.ToYear, r.Change})
		}
	default:
		t.AppendHeader(table.Row{"Entity", "Continent", "ISO3", "Year", "Metric", "Value"})
		for _, r := range data.Records {
			t.AppendRow(table.Row{r.Entity, r.Continent, r.ISO3, r.Year, r.Metric, r.Value.String()})
		}
	}
	t.Render()
}
