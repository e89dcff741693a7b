package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStopsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.pgo")
	stop, err := startProfile(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop()
		}()
	}
	wg.Wait()
	stop()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestSampleReturnsExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, sample(nil, &stderr))
	assert.Contains(t, stderr.String(), "no -config given")

	stderr.Reset()
	assert.Equal(t, 2, sample([]string{"-bogus"}, &stderr))
}

func TestSampleToyDatabase(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "toy.hcl")
	require.NoError(t, os.WriteFile(config, []byte(`
collection "flat" {
  type = "toy_flat"
}

collection "sine" {
  type = "toy_sine"
}

database {
  batch_size                           = 10
  time_steps_per_example               = 100
  number_of_parallel_processes_per_map = 1
  training_standard                    = ["flat", "sine"]
  validation_standard                  = ["flat", "sine"]
}
`), 0o644))

	var stderr bytes.Buffer
	assert.Equal(t, 0, sample([]string{"-config", config, "-batches", "2"}, &stderr), stderr.String())
	assert.Contains(t, stderr.String(), "Sampled batch.")
}

func TestNetworkRandFollowsDatabaseSeed(t *testing.T) {
	assert.Nil(t, networkRand(0))
	assert.Equal(t, networkRand(7).Uint64(), networkRand(7).Uint64())
	assert.NotEqual(t, networkRand(7).Uint64(), networkRand(8).Uint64())
}
