package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/internal/pipeline"
	"covid-impact-pipeline/internal/store"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"build"},
		Short:   "Build every dataset and export the results",
		Long: `Build every configured dataset, print the build diagnostics, write the
exports and, with --store, record the run in the SQLite store.`,
		Example: `  pipeline run --config pipeline.yaml
  pipeline run --format csv,json --export-dir out --store`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("export-dir", "", "Directory for exported files (default: output)")
	cmd.Flags().StringSlice("format", nil, "Export formats (csv, json)")
	cmd.Flags().Bool("store", false, "Record the run and its aggregates in the store")

	return cmd
}

func (a *app) run(ctx context.Context, w io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.New().String()
	logger := a.logger.With(zap.String("run_id", runID))

	var st *store.Store
	if a.cfg.Export.Store {
		st, err = store.Open(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveRun(ctx, runID, time.Now().UTC()); err != nil {
			return err
		}
		defer func() {
			if ferr := st.FinishRun(ctx, runID, err); ferr != nil {
				logger.Error("failed to record run status", zap.Error(ferr))
			}
		}()
	}

	p, err := a.build(ctx, runID)
	if err != nil {
		return err
	}

	diag := p.Diagnostics()
	renderDiagnostics(w, diag)

	opts := pipeline.ExportOptions{
		RunID:   runID,
		Dir:     a.cfg.Export.Dir,
		Formats: a.cfg.Export.Formats,
		Logger:  logger,
	}
	if st != nil {
		if err := st.SaveDiagnostics(ctx, runID, diag.Datasets); err != nil {
			return err
		}
		opts.Store = st
	}

	results := pipeline.NewExporter(opts).Export(ctx, p.Datasets())
	renderExports(w, results)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	_, _ = fmt.Fprintf(w, "Run %s completed in %v\n", runID, diag.Duration.Round(time.Millisecond))
	return nil
}

func renderDiagnostics(w io.Writer, diag model.Diagnostics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dataset", "Status", "Unresolved", "Join kept", "Join discarded", "Imputed", "Unfilled"})
	for _, d := range diag.Datasets {
		t.AppendRow(table.Row{
			d.Dataset,
			d.Status,
			len(d.UnresolvedEntities),
			d.JoinKept,
			d.JoinDiscarded,
			d.ImputedFilled,
			d.ImputedUnfilled,
		})
	}
	t.Render()

	for _, d := range diag.Datasets {
		if len(d.UnresolvedEntities) > 0 {
			_, _ = fmt.Fprintf(w, "%s: unresolved entities: %v\n", d.Dataset, d.UnresolvedEntities)
		}
		if d.EmptyJoin {
			_, _ = fmt.Fprintf(w, "%s: %v\n", d.Dataset, pipeline.ErrEmptyJoin)
		}
		if len(d.UndefinedCoefficients) > 0 {
			_, _ = fmt.Fprintf(w, "%s: undefined imputation coefficients: %v\n", d.Dataset, d.UndefinedCoefficients)
		}
	}
}

func renderExports(w io.Writer, results []model.ExportResult) {
	if len(results) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dataset", "Type", "Path", "Records", "Status"})
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = r.Error
		}
		t.AppendRow(table.Row{r.Dataset, r.Type, r.Path, r.RecordCount, status})
	}
	t.Render()
}
