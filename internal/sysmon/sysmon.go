// Package sysmon defines the OS/process-metrics provider contract consumed
// by the system-info commands, plus the gopsutil-backed production
// implementation. Each query may fail independently; failures surface to
// the interpreter as normal command errors, never as a crash.
package sysmon

import "context"

// ProcessInfo is one row in the process report.
type ProcessInfo struct {
	PID           int32
	Name          string
	Status        string
	CPUPercent    float64
	MemoryPercent float32
}

// CPUSnapshot is a point-in-time CPU reading.
type CPUSnapshot struct {
	UsagePercent float64
	Cores        int
	// FrequencyMHz is 0 when the platform does not expose it.
	FrequencyMHz float64
}

// MemorySnapshot is a point-in-time virtual memory reading, in bytes.
type MemorySnapshot struct {
	Total       uint64
	Available   uint64
	Used        uint64
	UsedPercent float64
}

// HostSnapshot describes the host system.
type HostSnapshot struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Arch            string
	UptimeSeconds   uint64
}

// Provider supplies raw system metrics on request. Implementations may
// block the caller (CPU sampling takes a measurement interval).
type Provider interface {
	Processes(ctx context.Context) ([]ProcessInfo, error)
	CPU(ctx context.Context) (CPUSnapshot, error)
	Memory(ctx context.Context) (MemorySnapshot, error)
	Host(ctx context.Context) (HostSnapshot, error)
}
