//go:build !cuda

package device

func cudaDevices() ([]CUDADevice, error) {
	return nil, nil
}
