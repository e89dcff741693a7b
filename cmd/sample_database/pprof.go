package main

import (
	"os"
	"os/signal"
	"runtime/pprof"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// profilePath is where -pgo writes, the file go build picks up for
// profile guided optimization.
const profilePath = "default.pgo"

// startProfile writes a CPU profile to path until the returned stop function
// runs or the process is interrupted. stop may be called more than once.
func startProfile(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "start profile")
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(done)
			signal.Stop(sigChan)
			pprof.StopCPUProfile()
			f.Close()
		})
	}
	go func() {
		select {
		case <-sigChan:
			stop()
			os.Exit(130)
		case <-done:
		}
	}()
	return stop, nil
}
