package config

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level blocks of one file.
type fileRoot struct {
	Metadatabase *Metadatabase `hcl:"metadatabase,block"`
	Collections  []*Collection `hcl:"collection,block"`
	Database     *Database     `hcl:"database,block"`
	Remain       hcl.Body      `hcl:",remain"`
}

// Metadatabase is the SQL database indexing light curve files.
type Metadatabase struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn"`
}

// Collection declares a named light curve collection.
type Collection struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`

	Directory     string   `hcl:"directory,optional"`
	Label         *float64 `hcl:"label,optional"`
	DatasetSplits []int    `hcl:"dataset_splits,optional"`
	SplitPieces   int      `hcl:"split_pieces,optional"`
}

// Database configures the streams. Unset numbers keep the database defaults.
type Database struct {
	ShuffleBufferSize               *int   `hcl:"shuffle_buffer_size,optional"`
	TimeStepsPerExample             *int   `hcl:"time_steps_per_example,optional"`
	BatchSize                       *int   `hcl:"batch_size,optional"`
	NumberOfParallelProcessesPerMap *int   `hcl:"number_of_parallel_processes_per_map,optional"`
	NumberOfAuxiliaryValues         *int   `hcl:"number_of_auxiliary_values,optional"`
	OutOfBoundsInjectionHandling    string `hcl:"out_of_bounds_injection_handling,optional"`
	Seed                            *int64 `hcl:"seed,optional"`

	TrainingStandard     []string `hcl:"training_standard,optional"`
	TrainingInjectee     string   `hcl:"training_injectee,optional"`
	TrainingInjectable   []string `hcl:"training_injectable,optional"`
	ValidationStandard   []string `hcl:"validation_standard,optional"`
	ValidationInjectee   string   `hcl:"validation_injectee,optional"`
	ValidationInjectable []string `hcl:"validation_injectable,optional"`
	Inference            []string `hcl:"inference,optional"`
}

// File is the merged configuration of all loaded files.
type File struct {
	Metadatabase *Metadatabase
	Collections  map[string]*Collection
	Database     *Database
}
