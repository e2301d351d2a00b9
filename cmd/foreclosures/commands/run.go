package commands

import (
	"context"
	"net/http"
	"os"

	"foreclosure-backend/lib/serviceutil"
	"foreclosure-backend/services/reconciler"
	"foreclosure-backend/services/reconciler/api"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
)

var runServer string

func init() {
	runCmd.Flags().StringVar(&runServer, "server", "", "Ask a running `foreclosures serve` at this base url to do the run instead.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <county>",
	Short: "Fetches the county's sales page and merges it into the county's store.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		county := args[0]
		if runServer != "" {
			return runRemote(cmd.Context(), county)
		}

		return withTelemetry(cmd.Context(), "foreclosures", func(ctx context.Context) error {
			service, cleanup, err := reconciler.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := service.Reconcile(ctx, county)
			if err != nil {
				return err
			}
			printReport(os.Stdout, report)
			return nil
		})
	},
}

func runRemote(ctx context.Context, county string) error {
	var opts []connect.ClientOption
	if cfg.Server.AccessToken != "" {
		opts = append(opts, connect.WithInterceptors(
			serviceutil.ProvideAccessTokenInterceptor(cfg.Server.AccessToken),
		))
	}
	client := api.NewClient(http.DefaultClient, runServer, opts...)

	res, err := client.Scrape(ctx, county)
	if err != nil {
		return err
	}
	printReport(os.Stdout, res.Report)
	return nil
}
