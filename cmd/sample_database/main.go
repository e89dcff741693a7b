package main

import (
	"context"
	"flag"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/neurlang/ramjet/database"
	"github.com/neurlang/ramjet/device"
	"github.com/neurlang/ramjet/evaluate"
	"github.com/neurlang/ramjet/internal/config"
	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/net/cura"

	_ "modernc.org/sqlite"
)

type pathsFlag []string

func (p *pathsFlag) String() string     { return strings.Join(*p, ",") }
func (p *pathsFlag) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	os.Exit(sample(os.Args[1:], os.Stderr))
}

// sample runs the command and returns its exit code, so deferred cleanup
// such as the profile flush happens before the process exits.
func sample(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("sample_database", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configs pathsFlag
	fs.Var(&configs, "config", "HCL configuration file or directory, repeatable")
	batches := fs.Int("batches", 10, "training batches to sample")
	model := fs.String("model", "", "Cura variant to evaluate, one of "+strings.Join(cura.Names(), ", "))
	dstmodel := fs.String("dstmodel", "", "model destination .json.lzw file")
	resume := fs.Bool("resume", false, "load -dstmodel before evaluating")
	population := fs.Int("population", 10000, "validation population for the evaluation sample size")
	confidence := fs.Float64("confidence", 0.95, "evaluation confidence level")
	margin := fs.Float64("margin", 0.05, "evaluation accuracy margin of error")
	threshold := fs.Float64("threshold", 0.5, "classification threshold")
	pgo := fs.Bool("pgo", false, "write a CPU profile to "+profilePath)
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "text", "log format: text, json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := ctxlog.New(*logLevel, *logFormat, stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if *pgo {
		stop, err := startProfile(profilePath)
		if err != nil {
			logger.Error("Profiling failed.", "error", err)
			return 1
		}
		defer stop()
	}

	o := options{
		configs:    configs,
		batches:    *batches,
		model:      *model,
		dstmodel:   *dstmodel,
		resume:     *resume,
		population: *population,
		confidence: *confidence,
		margin:     *margin,
		threshold:  *threshold,
	}
	if err := run(ctx, o); err != nil {
		logger.Error("Sampling failed.", "error", err)
		return 1
	}
	return 0
}

type options struct {
	configs    []string
	batches    int
	model      string
	dstmodel   string
	resume     bool
	population int
	confidence float64
	margin     float64
	threshold  float64
}

func run(ctx context.Context, o options) error {
	log := ctxlog.FromContext(ctx)
	log.Info("Device.", "device", device.Describe())

	if len(o.configs) == 0 {
		return errors.New("no -config given")
	}
	f, err := config.Load(ctx, o.configs...)
	if err != nil {
		return err
	}
	db, err := f.OpenMetadatabase(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	d, err := f.BuildDatabase(ctx, db)
	if err != nil {
		return err
	}

	training, validation, err := d.GenerateDatasets(ctx)
	if err != nil {
		return err
	}
	defer training.Close()
	defer validation.Close()

	var labels int
	for i := range o.batches {
		b, err := training.Next(ctx)
		if err != nil {
			return errors.Wrapf(err, "batch %d", i)
		}
		if len(b.Labels) > 0 {
			labels = len(b.Labels[0])
		}
		log.Info("Sampled batch.", batchStats(i, b)...)
	}

	if o.model == "" {
		return nil
	}
	if labels == 0 {
		labels = 1
	}
	net, err := cura.ByName(o.model, labels, 1, networkRand(d.Seed))
	if err != nil {
		return err
	}
	if !net.ValidInputLength(d.TimeStepsPerExample) {
		return errors.Wrapf(cura.ErrInputTooShort, "%s cannot take %d time steps", o.model, d.TimeStepsPerExample)
	}
	if err := evaluate.Resume(ctx, net, o.resume, o.dstmodel); err != nil {
		return err
	}
	n := evaluate.BatchesForSampleSize(o.population, o.confidence, o.margin, d.BatchSize)
	log.Info("Evaluating.", "model", net.Name, "parameters", net.Len(), "batches", n)
	var best float64
	_, err = evaluate.NewEvaluateFunc(net, validation, n, o.threshold, &best, o.dstmodel)(ctx)
	return err
}

// networkRand seeds the weight initialization from the database seed. A zero
// seed returns nil, which makes cura draw a random one.
func networkRand(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func batchStats(i int, b database.Batch) []any {
	var means, deviations, positives []float64
	for j, fluxes := range b.Fluxes {
		column := mat.Col(nil, 0, fluxes)
		mean, std := stat.MeanStdDev(column, nil)
		means = append(means, mean)
		deviations = append(deviations, std)
		if len(b.Labels[j]) > 0 {
			positives = append(positives, b.Labels[j][0])
		}
	}
	attrs := []any{
		"batch", i,
		"examples", b.Len(),
		"flux_mean", stat.Mean(means, nil),
		"flux_std", stat.Mean(deviations, nil),
		"label_mean", stat.Mean(positives, nil),
	}
	if len(b.Auxiliary) > 0 {
		attrs = append(attrs, "auxiliary_sum", floats.Sum(b.Auxiliary[0]))
	}
	if len(b.Paths) > 0 {
		attrs = append(attrs, "first_path", b.Paths[0])
	}
	return attrs
}
