package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"vramd/pkg/types"
)

func newStatusCmd() *cobra.Command {
	var (
		server  string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show GPU budget and loaded models of a running server",
		Example: "  vramd status --server http://localhost:8099",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := fetchStatus(server, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			renderStatus(out, st)
			return nil
		},
	}
	def := os.Getenv("VRAMD_SERVER")
	if def == "" {
		def = "http://localhost:8099"
	}
	cmd.Flags().StringVar(&server, "server", def, "Base URL of the vramd server")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status document")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}

func fetchStatus(server string, timeout time.Duration) (types.StatusResponse, error) {
	var st types.StatusResponse
	var apiErr types.ErrorResponse
	resp, err := resty.New().
		SetBaseURL(server).
		SetTimeout(timeout).
		R().
		SetResult(&st).
		SetError(&apiErr).
		Get("/status")
	if err != nil {
		return st, fmt.Errorf("get status: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return st, fmt.Errorf("get status: %s (%d)", apiErr.Error, resp.StatusCode())
		}
		return st, fmt.Errorf("get status: %s", resp.Status())
	}
	return st, nil
}

func renderStatus(w io.Writer, st types.StatusResponse) {
	m := st.Metrics
	device := m.Device
	if m.IsMock {
		device += " (mock telemetry)"
	}
	fmt.Fprintf(w, "GPU %s  used %d/%d MB  util %.0f%%  temp %.0fC\n", device, m.UsedVRAMMB, m.TotalVRAMMB, m.UtilizationPercent, m.TemperatureC)
	fmt.Fprintf(w, "budget %d MB  committed %d MB  free %d MB  reserve %d MB\n", st.BudgetMB, st.CommittedMB, st.FreeBudgetMB, st.SystemReserveMB)
	fmt.Fprintf(w, "queue %d pending / %d processing  loaded %d (idle %d, active %d)\n\n",
		st.Queue.PendingCount, st.Queue.ProcessingCount, st.LoadedCount, st.IdleCount, st.ActiveCount)

	if len(st.Models) == 0 {
		fmt.Fprintln(w, "no models loaded")
		return
	}
	data := make([][]string, 0, len(st.Models))
	for _, lm := range st.Models {
		idle := "-"
		if lm.IsIdle {
			idle = "idle"
		}
		unload := "yes"
		if !lm.SupportsUnload {
			unload = "sticky"
		}
		data = append(data, []string{lm.ModelKey, lm.State, strconv.Itoa(lm.VRAMMB), humanSeconds(lm.IdleSeconds), idle, unload, joinOrDash(lm.Sessions)})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODEL", "STATE", "VRAM MB", "LAST USED", "IDLE", "UNLOAD", "SESSIONS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func humanSeconds(s int64) string {
	if s <= 0 {
		return "just now"
	}
	return (time.Duration(s) * time.Second).String() + " ago"
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ",")
}
