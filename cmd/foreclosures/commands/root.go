package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"foreclosure-backend/lib/configutil"
	"foreclosure-backend/lib/telemetry"
	"foreclosure-backend/services/reconciler"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// populated before any subcommand runs
var cfg reconciler.Config
var logFile io.Closer

var rootCmd = &cobra.Command{
	Use:           "foreclosures",
	Short:         "foreclosures keeps per county stores of sheriff sale listings up to date.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := configutil.ReadConfigWithDefaults(configPath, reconciler.DefaultConfig())
		missing := os.IsNotExist(err)
		if err != nil && !missing {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		cfg = loaded

		logFile = telemetry.InitSlog(telemetry.SlogOptions{
			Verbose: verbose,
			LogFile: cfg.LogFile(),
		})
		if missing {
			slog.Debug("no config file found, using defaults", "path", configPath)
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

// withTelemetry runs fn with tracing and metrics exported as configured by
// telemetry.json5.
func withTelemetry(ctx context.Context, serviceName string, fn func(ctx context.Context) error) error {
	tel, err := telemetry.SetupFromEnv(ctx, serviceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to setup telemetry", "err", err)
	}
	defer func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	return fn(ctx)
}

func requireCounty(county string) error {
	if _, ok := cfg.CountyTable().Lookup(county); !ok {
		return fmt.Errorf("unknown county %q, see `foreclosures counties`", county)
	}
	return nil
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if logFile == nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			slog.Error("command failed", "err", err)
			logFile.Close()
		}
		os.Exit(1)
	}
}
