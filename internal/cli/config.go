package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults, the config file, environment and flags are merged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the built datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.build(cmd.Context(), "")
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dataset", "Metrics", "Entities", "Years", "Records"})
			for _, d := range p.Datasets() {
				years := ""
				if len(d.Years) > 0 {
					years = fmt.Sprintf("%d-%d", d.Years[0], d.Years[len(d.Years)-1])
				}
				t.AppendRow(table.Row{d.ID, strings.Join(d.Metrics, ", "), len(d.Entities), years, len(d.Records)})
			}
			t.Render()
			return nil
		},
	}
}
