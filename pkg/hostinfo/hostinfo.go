// Package hostinfo reports the CPU and memory resources of the machine running a render.
package hostinfo

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrInsufficientMemory is returned when a buffer would not fit in available memory
var ErrInsufficientMemory = errors.New("insufficient memory")

// Info describes the host
type Info struct {
	CPUModel     string
	LogicalCores int
	TotalMemory  uint64 // bytes
	AvailMemory  uint64 // bytes
}

// String formats the host description for a startup log line
func (i Info) String() string {
	model := i.CPUModel
	if model == "" {
		model = "unknown CPU"
	}
	return fmt.Sprintf("%s, %d logical cores, %.1f GiB RAM (%.1f GiB available)",
		model, i.LogicalCores, gib(i.TotalMemory), gib(i.AvailMemory))
}

func gib(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}

// LogicalCores returns the number of logical CPUs, falling back to runtime.NumCPU
// when the platform cannot be queried
func LogicalCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Describe reads host CPU and memory details. Fields that cannot be read are left zero,
// except LogicalCores which always has a usable value.
func Describe() (Info, error) {
	info := Info{LogicalCores: LogicalCores()}
	var errs []error

	cpuInfo, err := cpu.Info()
	if err != nil {
		errs = append(errs, fmt.Errorf("cpu info: %w", err))
	} else if len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		errs = append(errs, fmt.Errorf("memory info: %w", err))
	} else {
		info.TotalMemory = memInfo.Total
		info.AvailMemory = memInfo.Available
	}

	return info, errors.Join(errs...)
}

// CheckFramebufferBudget reports whether a buffer of the given size fits in
// currently available memory. When memory cannot be queried the check passes.
func CheckFramebufferBudget(bytes uint64) error {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	return checkBudget(bytes, memInfo.Available)
}

func checkBudget(bytes, available uint64) error {
	if available > 0 && bytes > available {
		return fmt.Errorf("framebuffer needs %.1f GiB, %.1f GiB available: %w",
			gib(bytes), gib(available), ErrInsufficientMemory)
	}
	return nil
}
