package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"covid-impact-pipeline/internal/api"
	"covid-impact-pipeline/internal/api/handler"
	"covid-impact-pipeline/internal/store"
	"covid-impact-pipeline/pkg/router"
	"covid-impact-pipeline/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chart data over HTTP",
		Long: `Build the pipeline once and serve its charts, datasets and diagnostics as
JSON. With --store the run history is served from the SQLite store too.
Restart the server to pick up changed source files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := a.build(ctx, "")
			if err != nil {
				return err
			}

			var runs handler.RunStore
			if a.cfg.Export.Store {
				st, err := store.Open(a.cfg.Store.Path)
				if err != nil {
					return err
				}
				defer st.Close()
				runs = st
			}

			r := api.NewRouter(p, runs, a.logger,
				router.WithColor(!noColor),
				router.WithShutdownTimeout(utils.ParseDuration(a.cfg.Server.ShutdownTimeout, 5*time.Second)),
			)
			a.logger.Info("serving pipeline", zap.String("run_id", p.RunID()), zap.Strings("routes", r.Routes()))
			return r.Start(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().Bool("store", false, "Serve the run history from the store")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured request logs")

	return cmd
}
