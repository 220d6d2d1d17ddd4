// Package sysinfo collects a description of the host a run was measured on.
package sysinfo

import (
	"context"
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo describes the measuring host.
type SystemInfo struct {
	Hostname           string  `json:"hostname" yaml:"hostname"`
	OS                 string  `json:"os" yaml:"os"`
	Platform           string  `json:"platform" yaml:"platform"`
	PlatformVersion    string  `json:"platform_version" yaml:"platform_version"`
	KernelVersion      string  `json:"kernel_version" yaml:"kernel_version"`
	Arch               string  `json:"arch" yaml:"arch"`
	Virtualization     string  `json:"virtualization,omitempty" yaml:"virtualization,omitempty"`
	VirtualizationRole string  `json:"virtualization_role,omitempty" yaml:"virtualization_role,omitempty"`
	CPUVendor          string  `json:"cpu_vendor" yaml:"cpu_vendor"`
	CPUModel           string  `json:"cpu_model" yaml:"cpu_model"`
	CPUCores           int     `json:"cpu_cores" yaml:"cpu_cores"`
	CPUThreads         int     `json:"cpu_threads" yaml:"cpu_threads"`
	CPUMhz             float64 `json:"cpu_mhz" yaml:"cpu_mhz"`
	MemoryTotalGB      float64 `json:"memory_total_gb" yaml:"memory_total_gb"`
}

// Collect gathers host information. Individual sources that fail leave
// their fields empty; only context cancellation is returned as an error.
func Collect(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform
		info.PlatformVersion = hostInfo.PlatformVersion
		info.KernelVersion = hostInfo.KernelVersion
		info.Virtualization = hostInfo.VirtualizationSystem
		info.VirtualizationRole = hostInfo.VirtualizationRole
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cpuInfo, err := cpu.InfoWithContext(ctx); err == nil && len(cpuInfo) > 0 {
		info.CPUVendor = cpuInfo[0].VendorID
		info.CPUModel = cpuInfo[0].ModelName
		info.CPUMhz = cpuInfo[0].Mhz
	}

	if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPUCores = cores
	}

	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUThreads = threads
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotalGB = math.Round(float64(vm.Total)/(1<<30)*100) / 100
	}

	return info, nil
}
