// Package parallel contains bounded parallel loops used by the layers and the data pipeline.
package parallel

import "runtime"

import "github.com/klauspost/cpuid/v2"

// DefaultLimit reports the number of goroutines to use when the caller does not
// choose one: the logical core count, or GOMAXPROCS when cpuid cannot tell.
// Can't return 0.
func DefaultLimit() int {
	n := cpuid.CPU.LogicalCores
	if procs := runtime.GOMAXPROCS(0); n <= 0 || procs < n {
		n = procs
	}
	if n <= 0 {
		return 1
	}
	return n
}
