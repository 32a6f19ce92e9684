package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"vramd/internal/telemetry"
)

func newTelemetryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Collect one GPU snapshot through nvidia-smi and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			snap, err := telemetry.NvidiaSMI{Path: path}.Collect(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&path, "nvidia-smi", "nvidia-smi", "Path to nvidia-smi")
	return cmd
}
