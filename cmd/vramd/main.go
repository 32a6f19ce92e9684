package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "vramd",
		Short:         "GPU model lifecycle manager",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env files only fill in; explicit --env-file entries override
			if len(opts.envFiles) == 0 {
				_ = godotenv.Load()
				return nil
			}
			for _, p := range opts.envFiles {
				if err := godotenv.Overload(p); err != nil {
					return fmt.Errorf("load env file %s: %w", p, err)
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("VRAMD_CONFIG"), "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Env files to load before reading VRAMD_* variables")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug|info|warn|error")

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(),
		newRegistryCmd(),
		newTelemetryCmd(),
	)
	return root
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
