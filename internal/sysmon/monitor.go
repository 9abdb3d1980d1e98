package sysmon

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const defaultSampleInterval = 500 * time.Millisecond

// Monitor implements Provider using gopsutil.
type Monitor struct {
	// sampleInterval is the blocking measurement window for CPU usage.
	sampleInterval time.Duration
}

// New creates a gopsutil-backed Monitor. A zero sampleInterval defaults
// to 500ms.
func New(sampleInterval time.Duration) *Monitor {
	if sampleInterval <= 0 {
		sampleInterval = defaultSampleInterval
	}
	return &Monitor{sampleInterval: sampleInterval}
}

// Processes returns a row per visible process. Per-process read failures
// (processes exiting mid-scan, permission limits) skip the row rather
// than failing the report.
func (m *Monitor) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		info := ProcessInfo{PID: p.Pid, Name: name, Status: "unknown"}
		if statuses, err := p.StatusWithContext(ctx); err == nil && len(statuses) > 0 {
			info.Status = statuses[0]
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = pct
		}
		if pct, err := p.MemoryPercentWithContext(ctx); err == nil {
			info.MemoryPercent = pct
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CPU samples utilization over the configured interval (blocking), and
// reads logical core count and current frequency. A missing frequency is
// reported as 0, not an error.
func (m *Monitor) CPU(ctx context.Context) (CPUSnapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, m.sampleInterval, false)
	if err != nil {
		return CPUSnapshot{}, fmt.Errorf("sampling cpu utilization: %w", err)
	}
	snap := CPUSnapshot{}
	if len(percents) > 0 {
		snap.UsagePercent = percents[0]
	}

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUSnapshot{}, fmt.Errorf("reading cpu count: %w", err)
	}
	snap.Cores = count

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.FrequencyMHz = infos[0].Mhz
	}
	return snap, nil
}

// Memory returns the virtual memory snapshot.
func (m *Monitor) Memory(ctx context.Context) (MemorySnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemorySnapshot{}, fmt.Errorf("reading virtual memory: %w", err)
	}
	return MemorySnapshot{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
	}, nil
}

// Host returns static host information plus uptime.
func (m *Monitor) Host(ctx context.Context) (HostSnapshot, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("reading host info: %w", err)
	}
	return HostSnapshot{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Arch:            info.KernelArch,
		UptimeSeconds:   info.Uptime,
	}, nil
}

// compile-time interface check
var _ Provider = (*Monitor)(nil)
