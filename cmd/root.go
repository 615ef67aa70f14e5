package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	appcfg "github.com/ca-srg/nova/internal/config"
	"github.com/ca-srg/nova/internal/observability"
	"github.com/ca-srg/nova/internal/secrets"
	"github.com/ca-srg/nova/internal/types"
)

var (
	envFiles []string
	// cfg is resolved once in PersistentPreRunE for every subcommand.
	cfg          *types.Config
	otelShutdown observability.Shutdown
)

var rootCmd = &cobra.Command{
	Use:   "nova",
	Short: "Nova - influencer analytics assistant for Slack",
	Long: `Nova answers natural-language questions about influencer marketing
performance. It routes each request to an analytics tool (monthly and weekly
reviews, influencer deep dives, trend leaderboards, strategic plans), keeps
per-thread context for follow-up questions, and replies in Slack threads.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if otelShutdown == nil {
			return nil
		}
		return otelShutdown(context.Background())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	addEnvFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(slackCmd)
	rootCmd.AddCommand(askCmd)
}

func addEnvFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment (missing files are skipped)")
}

// setup loads dotenv files, fills missing variables from Secrets Manager,
// resolves the configuration and installs telemetry.
func setup(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "nova ", log.LstdFlags)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := appcfg.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	if err := secrets.Bootstrap(ctx, logger); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	loaded, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	shutdown, err := observability.Init(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	otelShutdown = shutdown
	return nil
}
