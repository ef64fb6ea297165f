package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "guardian",
		Short: "Content Guardian CLI - register, verify and license content",
		Long: `Content Guardian Command Line Interface

Registers text and images, finds registered content similar to a submission
and issues licenses, using the same environment configuration as the server
(PERSISTENCE_URL, STORAGE_URL, LEDGER_URL, ...).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewRegisterCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewLicenseCommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewLedgerAccountsCommand())
	rootCmd.AddCommand(NewLedgerVerifyCommand())
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}

// newService builds the service from environment configuration
func newService(ctx context.Context) (guardian.Service, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg.BuildService(ctx)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
