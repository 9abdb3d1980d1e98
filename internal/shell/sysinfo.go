package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/jkaninda/ganda/internal/sysmon"
)

const defaultProcessLimit = 20

// sysinfoCommands returns the system-info command set. Each handler is a
// thin formatter over the metrics provider; a provider failure becomes a
// normal failed result carrying the provider's message.
func sysinfoCommands(mon sysmon.Provider, opts Options) []Command {
	limit := opts.ProcessLimit
	if limit <= 0 {
		limit = defaultProcessLimit
	}

	return []Command{
		{
			Name: "ps", Usage: "ps", Description: "List processes",
			Run: func(ctx context.Context, _ *Session, _ []string) (Result, error) {
				procs, err := mon.Processes(ctx)
				if err != nil {
					return Result{}, failf(ErrProvider, "Error getting processes: %v", err)
				}
				if len(procs) > limit {
					procs = procs[:limit]
				}
				lines := make([]string, len(procs))
				for i, p := range procs {
					lines[i] = fmt.Sprintf("%6d %-20s %-10s %5.1f %5.1f",
						p.PID, p.Name, p.Status, p.CPUPercent, p.MemoryPercent)
				}
				return ok(strings.Join(lines, "\n")), nil
			},
		},
		{
			Name: "cpu", Usage: "cpu", Description: "Show CPU information",
			Run: func(ctx context.Context, _ *Session, _ []string) (Result, error) {
				snap, err := mon.CPU(ctx)
				if err != nil {
					return Result{}, failf(ErrProvider, "Error getting CPU info: %v", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "CPU Usage: %.1f%%\n", snap.UsagePercent)
				fmt.Fprintf(&b, "CPU Cores: %d", snap.Cores)
				if snap.FrequencyMHz > 0 {
					fmt.Fprintf(&b, "\nCPU Frequency: %.2f MHz", snap.FrequencyMHz)
				}
				return ok(b.String()), nil
			},
		},
		{
			Name: "mem", Usage: "mem", Description: "Show memory information",
			Run: func(ctx context.Context, _ *Session, _ []string) (Result, error) {
				snap, err := mon.Memory(ctx)
				if err != nil {
					return Result{}, failf(ErrProvider, "Error getting memory info: %v", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Total Memory: %.2f GB\n", gb(snap.Total))
				fmt.Fprintf(&b, "Available Memory: %.2f GB\n", gb(snap.Available))
				fmt.Fprintf(&b, "Used Memory: %.2f GB\n", gb(snap.Used))
				fmt.Fprintf(&b, "Memory Usage: %.1f%%", snap.UsedPercent)
				return ok(b.String()), nil
			},
		},
		{
			Name: "sysinfo", Usage: "sysinfo", Description: "Show system information",
			Run: func(ctx context.Context, sess *Session, _ []string) (Result, error) {
				snap, err := mon.Host(ctx)
				if err != nil {
					return Result{}, failf(ErrProvider, "Error getting system info: %v", err)
				}
				var b strings.Builder
				b.WriteString("=== System Information ===\n")
				fmt.Fprintf(&b, "Hostname: %s\n", snap.Hostname)
				fmt.Fprintf(&b, "Platform: %s %s (%s)\n", snap.Platform, snap.PlatformVersion, snap.OS)
				fmt.Fprintf(&b, "Kernel: %s\n", snap.KernelVersion)
				fmt.Fprintf(&b, "Architecture: %s\n", snap.Arch)
				fmt.Fprintf(&b, "Uptime: %s\n", formatUptime(snap.UptimeSeconds))
				fmt.Fprintf(&b, "Current Directory: %s", sess.WorkingDir)
				return ok(b.String()), nil
			},
		},
	}
}

func gb(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}

func formatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	mins := (seconds % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
