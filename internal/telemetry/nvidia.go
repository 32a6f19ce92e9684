package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"vramd/pkg/types"
)

const (
	gpuQuery  = "name,memory.total,memory.used,memory.free,utilization.gpu,temperature.gpu"
	appsQuery = "pid,process_name,used_memory"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NvidiaSMI collects the first device through the nvidia-smi CLI.
type NvidiaSMI struct {
	// Path to the binary; defaults to "nvidia-smi" on PATH.
	Path string
	Run  Runner
	Now  func() time.Time
}

func (n NvidiaSMI) Collect(ctx context.Context) (Snapshot, error) {
	run := n.Run
	if run == nil {
		run = ExecRunner
	}
	bin := n.Path
	if bin == "" {
		bin = "nvidia-smi"
	}
	out, err := run(ctx, bin, "--query-gpu="+gpuQuery, "--format=csv,noheader,nounits")
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	m, err := parseGPU(out)
	if err != nil {
		return Snapshot{}, err
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	m.CollectedAt = now().Unix()

	snap := Snapshot{Metrics: m}
	// Per-process attribution is optional; some drivers refuse the query.
	if out, err := run(ctx, bin, "--query-compute-apps="+appsQuery, "--format=csv,noheader,nounits"); err == nil {
		snap.Processes = parseApps(out)
	}
	return snap, nil
}

func parseGPU(out []byte) (types.GpuMetrics, error) {
	rows, err := readCSV(out)
	if err != nil {
		return types.GpuMetrics{}, fmt.Errorf("%w: parse gpu query: %v", ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return types.GpuMetrics{}, fmt.Errorf("%w: no devices reported", ErrUnavailable)
	}
	r := rows[0]
	if len(r) < 6 {
		return types.GpuMetrics{}, fmt.Errorf("%w: expected 6 columns, got %d", ErrUnavailable, len(r))
	}
	total, err := strconv.Atoi(r[1])
	if err != nil || total <= 0 {
		return types.GpuMetrics{}, fmt.Errorf("%w: bad memory.total %q", ErrUnavailable, r[1])
	}
	m := types.GpuMetrics{
		Device:             r[0],
		TotalVRAMMB:        total,
		UsedVRAMMB:         atoiOr(r[2], 0),
		FreeVRAMMB:         atoiOr(r[3], 0),
		UtilizationPercent: atofOr(r[4], 0),
		TemperatureC:       atofOr(r[5], 0),
	}
	if m.FreeVRAMMB == 0 && m.UsedVRAMMB < total {
		m.FreeVRAMMB = total - m.UsedVRAMMB
	}
	return m, nil
}

func parseApps(out []byte) []types.GpuProcess {
	rows, err := readCSV(out)
	if err != nil {
		return nil
	}
	procs := make([]types.GpuProcess, 0, len(rows))
	for _, r := range rows {
		if len(r) < 3 {
			continue
		}
		pid, err := strconv.Atoi(r[0])
		if err != nil {
			continue
		}
		procs = append(procs, types.GpuProcess{PID: pid, Name: r[1], UsedMB: atoiOr(r[2], 0)})
	}
	return procs
}

func readCSV(out []byte) ([][]string, error) {
	cr := csv.NewReader(strings.NewReader(string(out)))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		rows = append(rows, rec)
	}
}

// atoiOr tolerates "[N/A]" and "[Not Supported]" cells.
func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func atofOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
