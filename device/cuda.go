//go:build cuda

package device

import (
	"github.com/pkg/errors"
	"gorgonia.org/cu"
)

func cudaDevices() ([]CUDADevice, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return nil, errors.Wrap(err, "count cuda devices")
	}
	devices := make([]CUDADevice, 0, n)
	for i := 0; i < n; i++ {
		d := cu.Device(i)
		name, err := d.Name()
		if err != nil {
			return devices, errors.Wrapf(err, "name of cuda device %d", i)
		}
		memory, err := d.TotalMem()
		if err != nil {
			return devices, errors.Wrapf(err, "memory of cuda device %d", i)
		}
		devices = append(devices, CUDADevice{Index: i, Name: name, TotalMemory: memory})
	}
	return devices, nil
}
