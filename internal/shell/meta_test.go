package shell

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jkaninda/ganda/internal/sysmon"
)

func TestHelpMatchesRegistry(t *testing.T) {
	d, sess := newTestDispatcher(t)

	res := mustSucceed(t, d, sess, "help")

	names := d.Registry().Names()
	want := []string{
		"cat", "cd", "clear", "cp", "cpu", "echo", "exit", "help", "history",
		"ls", "mem", "mkdir", "mv", "ps", "pwd", "rm", "rmdir", "sysinfo", "touch",
	}
	if len(names) != len(want) {
		t.Fatalf("registry has %d commands, want %d: %v", len(names), len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("registry name[%d] = %q, want %q", i, names[i], n)
		}
	}

	// Every registered name appears in help output, each on its own line.
	lines := strings.Split(res.Output, "\n")
	for _, name := range names {
		found := false
		for _, line := range lines[1:] {
			if strings.HasPrefix(strings.TrimSpace(line), name) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("help output missing command %q", name)
		}
	}
	// One header line plus one line per command, nothing else.
	if len(lines) != len(names)+1 {
		t.Errorf("help output has %d lines, want %d", len(lines), len(names)+1)
	}
}

func TestClearAndExitActions(t *testing.T) {
	d, sess := newTestDispatcher(t)

	res := mustSucceed(t, d, sess, "clear")
	if res.Action != ActionClear {
		t.Errorf("clear action = %v, want ActionClear", res.Action)
	}
	if res.Output != "" {
		t.Errorf("clear output = %q, want empty", res.Output)
	}

	res = mustSucceed(t, d, sess, "exit")
	if res.Action != ActionEnd {
		t.Errorf("exit action = %v, want ActionEnd", res.Action)
	}

	// exit does not delete history.
	if sess.HistoryLen() != 2 {
		t.Errorf("history length after exit = %d, want 2", sess.HistoryLen())
	}
}

func TestHistoryCommand(t *testing.T) {
	d, sess := newTestDispatcher(t)

	if res := mustSucceed(t, d, sess, "history"); res.Output != "No commands in history" {
		// The history command itself is recorded, so the first call sees
		// an empty log only before its own entry lands.
		t.Errorf("first history output = %q", res.Output)
	}

	mustSucceed(t, d, sess, "echo one")
	mustSucceed(t, d, sess, `echo "two words"`)
	res := mustSucceed(t, d, sess, "history")

	lines := strings.Split(res.Output, "\n")
	if len(lines) != 3 {
		t.Fatalf("history lines = %d, want 3", len(lines))
	}
	if !strings.Contains(lines[0], "history") {
		t.Errorf("oldest line %q should record the first history call", lines[0])
	}
	if !strings.Contains(lines[1], "echo one") {
		t.Errorf("line %q missing command and args", lines[1])
	}
	if !strings.Contains(lines[2], "echo two words") {
		t.Errorf("line %q missing quoted arg rendering", lines[2])
	}
}

func TestNoArgCommandsIgnoreExtras(t *testing.T) {
	d, sess := newTestDispatcher(t)

	// Deterministic policy: commands that take no arguments ignore extras.
	for _, line := range []string{"pwd extra", "help extra", "history extra", "clear extra", "exit extra"} {
		res := d.Execute(context.Background(), sess, line)
		if !res.Success {
			t.Errorf("Execute(%q) failed: %s", line, res.Output)
		}
	}
}

func TestSysinfoCommands(t *testing.T) {
	mon := &fakeProvider{
		procs: []sysmon.ProcessInfo{
			{PID: 1, Name: "init", Status: "sleeping", CPUPercent: 0.1, MemoryPercent: 0.5},
			{PID: 42, Name: "ganda", Status: "running", CPUPercent: 2.0, MemoryPercent: 1.2},
		},
		cpu:    sysmon.CPUSnapshot{UsagePercent: 12.5, Cores: 8, FrequencyMHz: 2400},
		memory: sysmon.MemorySnapshot{Total: 16 << 30, Available: 8 << 30, Used: 8 << 30, UsedPercent: 50},
		host:   sysmon.HostSnapshot{Hostname: "box", Platform: "debian", PlatformVersion: "12", OS: "linux", KernelVersion: "6.1", Arch: "x86_64", UptimeSeconds: 90061},
	}
	d, sess := newTestDispatcherWith(t, mon)

	res := mustSucceed(t, d, sess, "ps")
	if !strings.Contains(res.Output, "init") || !strings.Contains(res.Output, "ganda") {
		t.Errorf("ps output missing processes: %q", res.Output)
	}

	res = mustSucceed(t, d, sess, "cpu")
	for _, want := range []string{"CPU Usage: 12.5%", "CPU Cores: 8", "CPU Frequency: 2400.00 MHz"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("cpu output missing %q: %q", want, res.Output)
		}
	}

	res = mustSucceed(t, d, sess, "mem")
	for _, want := range []string{"Total Memory: 16.00 GB", "Available Memory: 8.00 GB", "Memory Usage: 50.0%"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("mem output missing %q: %q", want, res.Output)
		}
	}

	res = mustSucceed(t, d, sess, "sysinfo")
	for _, want := range []string{"Hostname: box", "Platform: debian 12 (linux)", "Uptime: 1d 1h 1m", "Current Directory: " + sess.WorkingDir} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("sysinfo output missing %q: %q", want, res.Output)
		}
	}
}

func TestSysinfoProviderErrors(t *testing.T) {
	boom := errors.New("metrics unavailable")
	mon := &fakeProvider{procErr: boom, cpuErr: boom, memErr: boom, hostErr: boom}
	d, sess := newTestDispatcherWith(t, mon)

	for _, line := range []string{"ps", "cpu", "mem", "sysinfo"} {
		res := d.Execute(context.Background(), sess, line)
		if res.Success {
			t.Errorf("%s succeeded with failing provider", line)
		}
		if !strings.Contains(res.Output, "metrics unavailable") {
			t.Errorf("%s output %q does not pass through the provider error", line, res.Output)
		}
	}
}

func TestPsLimit(t *testing.T) {
	procs := make([]sysmon.ProcessInfo, 30)
	for i := range procs {
		procs[i] = sysmon.ProcessInfo{PID: int32(i + 1), Name: "p", Status: "running"}
	}
	reg := DefaultRegistry(&fakeProvider{procs: procs}, Options{ProcessLimit: 5})
	d := NewDispatcher(reg, testLogger())
	sess := NewSession("test", t.TempDir())

	res := mustSucceed(t, d, sess, "ps")
	if got := len(strings.Split(res.Output, "\n")); got != 5 {
		t.Errorf("ps rows = %d, want 5", got)
	}
}
