package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// HostProbe implements domain.HostProbe on top of gopsutil.
// 🛡️ Platform Agnostic: gopsutil hides the /proc vs sysctl vs WMI split.
type HostProbe struct {
	DiskPath string
}

// NewHostProbe returns a probe reporting usage of the filesystem mounted at diskPath.
func NewHostProbe(diskPath string) *HostProbe {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostProbe{DiskPath: diskPath}
}

// Collect runs every probe and joins the failures. A failing probe leaves its
// fields untouched so the snapshot keeps the last good values.
func (p *HostProbe) Collect(ctx context.Context, snap *domain.SystemSnapshot) error {
	var errs []error

	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host info: %w", err))
	} else {
		snap.Hostname = info.Hostname
		snap.OS = info.OS
		snap.Platform = info.Platform
		snap.KernelVersion = info.KernelVersion
		snap.UptimeSeconds = info.Uptime
		snap.Processes = info.Procs
	}

	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu info: %w", err))
	} else if len(infos) > 0 {
		snap.CPUModel = infos[0].ModelName
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("cpu count: %w", err))
	} else {
		snap.CPUCores = cores
	}

	// Zero interval compares against the previous call instead of sleeping,
	// keeping the refresh cost bounded by the OS queries alone.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu percent: %w", err))
	} else if len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("load average: %w", err))
	} else {
		snap.Load = domain.LoadAverage{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("virtual memory: %w", err))
	} else {
		snap.MemoryTotal = vm.Total
		snap.MemoryUsed = vm.Used
		snap.MemoryAvailable = vm.Available
		snap.MemoryPercent = vm.UsedPercent
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("swap: %w", err))
	} else {
		snap.SwapTotal = swap.Total
		snap.SwapUsed = swap.Used
		snap.SwapPercent = swap.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, p.DiskPath); err != nil {
		errs = append(errs, fmt.Errorf("disk usage %s: %w", p.DiskPath, err))
	} else {
		snap.DiskTotal = usage.Total
		snap.DiskUsed = usage.Used
		snap.DiskPercent = usage.UsedPercent
	}

	return errors.Join(errs...)
}
