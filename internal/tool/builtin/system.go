package builtin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cora/internal/tool"

	"github.com/atotto/clipboard"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// RegisterSystem adds the OS-level tools: time, host stats, clipboard
// access and process listing/control.
func RegisterSystem(reg *tool.Registry) {
	reg.Register(&tool.Spec{
		Name:        "get_time",
		Description: "Get the current date and time",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: getTime,
	})

	reg.Register(&tool.Spec{
		Name:        "system_info",
		Description: "Get host, CPU, memory and disk usage information",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: systemInfo,
	})

	reg.Register(&tool.Spec{
		Name:        "get_clipboard",
		Description: "Read the current clipboard contents",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: getClipboard,
	})

	reg.Register(&tool.Spec{
		Name:        "set_clipboard",
		Description: "Write text to the clipboard",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Text to place on the clipboard",
				},
			},
			"required": []string{"text"},
		},
		Handler: setClipboard,
	})

	reg.Register(&tool.Spec{
		Name:        "list_processes",
		Description: "List running processes sorted by CPU usage",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of processes to return (default: 15)",
				},
			},
		},
		Handler: listProcesses,
	})

	reg.Register(&tool.Spec{
		Name:        "kill_process",
		Description: "Terminate a process by PID",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pid": map[string]any{
					"type":        "number",
					"description": "Process ID to terminate",
				},
			},
			"required": []string{"pid"},
		},
		Handler: killProcess,
	})
}

func getTime(ctx context.Context, args tool.Args) (any, error) {
	now := time.Now()
	return map[string]any{
		"time":     now.Format("15:04:05"),
		"date":     now.Format("2006-01-02"),
		"weekday":  now.Weekday().String(),
		"timezone": now.Format("MST"),
		"unix":     now.Unix(),
	}, nil
}

func systemInfo(ctx context.Context, args tool.Args) (any, error) {
	info := map[string]any{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info["hostname"] = h.Hostname
		info["platform"] = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
		info["uptime_hours"] = float64(h.Uptime) / 3600
	}

	if percents, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false); err == nil && len(percents) > 0 {
		info["cpu_percent"] = round1(percents[0])
	}
	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		info["cpu_cores"] = counts
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info["memory_percent"] = round1(vm.UsedPercent)
		info["memory_total_gb"] = round1(float64(vm.Total) / (1 << 30))
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		info["disk_percent"] = round1(du.UsedPercent)
		info["disk_free_gb"] = round1(float64(du.Free) / (1 << 30))
	}

	if len(info) == 0 {
		return nil, fmt.Errorf("failed to collect system information")
	}
	return info, nil
}

func getClipboard(ctx context.Context, args tool.Args) (any, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %v", err)
	}
	return map[string]any{"text": text}, nil
}

func setClipboard(ctx context.Context, args tool.Args) (any, error) {
	text := args.String("text", "")
	if err := clipboard.WriteAll(text); err != nil {
		return nil, fmt.Errorf("failed to write clipboard: %v", err)
	}
	return map[string]any{"copied": len(text)}, nil
}

func listProcesses(ctx context.Context, args tool.Args) (any, error) {
	limit := args.Int("limit", 15)
	if limit <= 0 {
		limit = 15
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %v", err)
	}

	type entry struct {
		PID    int32   `json:"pid"`
		Name   string  `json:"name"`
		CPU    float64 `json:"cpu_percent"`
		Memory float32 `json:"memory_percent"`
	}

	entries := make([]entry, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		entries = append(entries, entry{
			PID:    p.Pid,
			Name:   name,
			CPU:    round1(cpuPct),
			Memory: memPct,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CPU > entries[j].CPU
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return map[string]any{
		"processes": entries,
		"total":     len(procs),
	}, nil
}

func killProcess(ctx context.Context, args tool.Args) (any, error) {
	pid := args.Int("pid", 0)
	if pid <= 0 {
		return nil, fmt.Errorf("pid is required")
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("process %d not found", pid)
	}

	name, _ := p.NameWithContext(ctx)
	if err := p.TerminateWithContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to terminate process %d: %v", pid, err)
	}

	return map[string]any{
		"pid":        pid,
		"name":       name,
		"terminated": true,
	}, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
