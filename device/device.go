// Package device describes the hardware the networks run on.
package device

import (
	"log/slog"
	"strconv"

	"github.com/klauspost/cpuid/v2"
)

// CUDADevice is a GPU visible to the CUDA driver.
type CUDADevice struct {
	Index       int
	Name        string
	TotalMemory int64
}

// Info describes the CPU and any CUDA devices.
type Info struct {
	CPUBrand      string
	LogicalCores  int
	PhysicalCores int
	AVX2          bool
	AVX512        bool
	CUDA          []CUDADevice

	// CUDAError is set when CUDA support is built in but probing failed.
	CUDAError error
}

// Describe probes the hardware. CUDA devices are only listed in binaries
// built with the cuda tag.
func Describe() Info {
	info := Info{
		CPUBrand:      cpuid.CPU.BrandName,
		LogicalCores:  cpuid.CPU.LogicalCores,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:        cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
	info.CUDA, info.CUDAError = cudaDevices()
	return info
}

// LogValue implements slog.LogValuer.
func (i Info) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("cpu", i.CPUBrand),
		slog.Int("logical_cores", i.LogicalCores),
		slog.Int("physical_cores", i.PhysicalCores),
		slog.Bool("avx2", i.AVX2),
		slog.Bool("avx512", i.AVX512),
		slog.Int("cuda_devices", len(i.CUDA)),
	}
	for _, d := range i.CUDA {
		attrs = append(attrs, slog.Group("cuda"+strconv.Itoa(d.Index),
			slog.String("name", d.Name), slog.Int64("memory", d.TotalMemory)))
	}
	if i.CUDAError != nil {
		attrs = append(attrs, slog.String("cuda_error", i.CUDAError.Error()))
	}
	return slog.GroupValue(attrs...)
}
