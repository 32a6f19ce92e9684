package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"vramd/internal/registry"
)

var errRegistryDegraded = errors.New("registry is unusable; the server would run on built-in defaults")

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect model registry files",
	}
	validate := &cobra.Command{
		Use:     "validate PATH",
		Short:   "Load a registry file and report repairs",
		Example: "  vramd registry validate models.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateRegistry(cmd.OutOrStdout(), args[0])
		},
	}
	cmd.AddCommand(validate)
	return cmd
}

func validateRegistry(w io.Writer, path string) error {
	res := registry.Load(path)
	if res.Degraded {
		fmt.Fprintf(w, "DEGRADED: %s\n", res.Reason)
		return errRegistryDegraded
	}
	th := res.Registry.Thresholds()
	fmt.Fprintf(w, "%s: %d model(s), warning %.0f%%, critical %.0f%%, idle %ds, reserve %d MB\n",
		res.Path, len(res.Registry.Definitions()), th.WarningPercent, th.CriticalPercent, th.IdleTimeoutSeconds, th.SystemReserveMB)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	defs := res.Registry.Definitions()
	if len(defs) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	data := make([][]string, 0, len(defs))
	for _, d := range defs {
		idle := "global"
		if d.IdleTimeoutSeconds > 0 {
			idle = strconv.Itoa(d.IdleTimeoutSeconds) + "s"
		}
		data = append(data, []string{d.Key.String(), strconv.Itoa(d.EstimatedVRAMMB), strconv.Itoa(d.DefaultPriority), idle, d.Quantization})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODEL", "VRAM MB", "PRIORITY", "IDLE TIMEOUT", "QUANT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}
