package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/llehouerou/shoal/internal/bridge"
	"github.com/llehouerou/shoal/internal/errmsg"
	"github.com/llehouerou/shoal/internal/query"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer XML queries on the session bus",
		Long: `Export the collections on the D-Bus session bus as ` + bridge.BusName + `
until interrupted. Other programs call ` + bridge.Interface + `.Query
on ` + bridge.ObjectPath + ` with an XML query and receive a list of
string maps, one per result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, err := a.openManager(ctx)
			if err != nil {
				return err
			}
			defer mgr.Close()

			svc := bridge.NewService(func() query.Maker { return mgr.NewQueryMaker() },
				a.cfg.GetQueryConfig().Timeout, a.logger)
			srv, err := bridge.Serve(svc)
			if err != nil {
				return fail(errmsg.OpBusExport, err)
			}
			defer srv.Close()

			a.logger.Info().
				Str("bus_name", bridge.BusName).
				Int("collections", len(mgr.Collections())).
				Msg("serving queries")
			<-ctx.Done()
			a.logger.Info().Msg("shutting down")
			return nil
		},
	}
}
