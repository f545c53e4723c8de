package domain

import (
	"context"
	"time"
)

// LoadAverage mirrors the kernel's 1/5/15 minute run-queue averages.
type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// SystemSnapshot is the last observed resource state of the host.
// 🛡️ SLA: It is only ever mutated behind the SnapshotService guard; every
// value handed to callers is a copy.
type SystemSnapshot struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	Processes     uint64 `json:"processes"`

	// CPU
	CPUModel   string      `json:"cpu_model"`
	CPUCores   int         `json:"cpu_cores"`
	CPUPercent float64     `json:"cpu_percent"`
	Load       LoadAverage `json:"load"`

	// Memory
	MemoryTotal     uint64  `json:"memory_total_bytes"`
	MemoryUsed      uint64  `json:"memory_used_bytes"`
	MemoryAvailable uint64  `json:"memory_available_bytes"`
	MemoryPercent   float64 `json:"memory_percent"`
	SwapTotal       uint64  `json:"swap_total_bytes"`
	SwapUsed        uint64  `json:"swap_used_bytes"`
	SwapPercent     float64 `json:"swap_percent"`

	// Root filesystem
	DiskTotal   uint64  `json:"disk_total_bytes"`
	DiskUsed    uint64  `json:"disk_used_bytes"`
	DiskPercent float64 `json:"disk_percent"`

	// Generation increments once per completed refresh. Zero means the
	// snapshot has never been populated.
	Generation  uint64    `json:"generation"`
	CollectedAt time.Time `json:"collected_at"`
}

// HostProbe reads host resource data into a snapshot.
// Implementations should fill what they can and return the joined errors of
// the probes that failed; fields belonging to a failed probe keep their prior values.
type HostProbe interface {
	Collect(ctx context.Context, snap *SystemSnapshot) error
}

// SnapshotObserver is notified after every completed refresh.
type SnapshotObserver interface {
	ObserveSnapshot(snap SystemSnapshot)
}
