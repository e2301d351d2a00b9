package commands

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"foreclosure-backend/lib/serviceutil"
	"foreclosure-backend/lib/telemetry"
	"foreclosure-backend/lib/timezone"
	"foreclosure-backend/services/reconciler"
	"foreclosure-backend/services/reconciler/api"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
)

var (
	servePort   int
	dailyAtHour int
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on, overrides server.port.")
	serveCmd.Flags().IntVar(&dailyAtHour, "daily-at", -1, "Also run every county once a day at this hour (eastern time), -1 to disable.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the scrape and persist endpoints.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTelemetry(cmd.Context(), "foreclosures-server", func(ctx context.Context) error {
			telemetry.InstrumentPerfStats(ctx)

			service, cleanup, err := reconciler.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if dailyAtHour >= 0 {
				go dailyWorker(ctx, service, dailyAtHour)
			}

			mux := http.NewServeMux()
			mux.Handle(api.NewHandler(
				service,
				connect.WithInterceptors(
					serviceutil.NewConnectOtelInterceptor(),
					serviceutil.VerifyAccessTokenInterceptor(cfg.Server.AccessToken),
				),
			))

			port := cfg.Server.Port
			if servePort > 0 {
				port = servePort
			}
			return serviceutil.StartHttpServer(ctx, port, mux)
		})
	},
}

func dailyWorker(ctx context.Context, service reconciler.Service, hour int) {
	ticker := time.NewTicker(time.Minute * 10)
	defer ticker.Stop()

	lastRun := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := timezone.Now()
			today := current.Format(time.DateOnly)
			if current.Hour() != hour || lastRun == today {
				continue
			}
			lastRun = today

			for _, county := range service.Counties().Names() {
				if ctx.Err() != nil {
					return
				}
				ok := service.Run(ctx, county)
				slog.InfoContext(ctx, "scheduled run finished", "source", "reconciler", "county", county, "ok", ok)
			}
		}
	}
}
