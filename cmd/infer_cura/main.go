package main

import (
	"context"
	"flag"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/inference"
	"github.com/neurlang/ramjet/internal/config"
	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/net/cura"

	_ "modernc.org/sqlite"
)

type pathsFlag []string

func (p *pathsFlag) String() string     { return strings.Join(*p, ",") }
func (p *pathsFlag) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	var configs pathsFlag
	flag.Var(&configs, "config", "HCL configuration file or directory, repeatable")
	model := flag.String("model", "cura", "Cura variant, one of "+strings.Join(cura.Names(), ", "))
	weights := flag.String("weights", "", "trained .json.lzw weights")
	labels := flag.Int("labels", 1, "number of label types the network was trained with")
	out := flag.String("out", "", "CSV destination, stdout when empty")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text, json")
	flag.Parse()

	logger := ctxlog.New(*logLevel, *logFormat, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if err := run(ctx, configs, *model, *weights, *labels, *out); err != nil {
		logger.Error("Inference failed.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configs []string, model, weights string, labels int, out string) error {
	if len(configs) == 0 {
		return errors.New("no -config given")
	}
	if weights == "" {
		return errors.New("no -weights given")
	}
	f, err := config.Load(ctx, configs...)
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

	net, err := cura.ByName(model, labels, 1, rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		return err
	}
	if err := net.ReadCompressedWeightsFromFile(weights); err != nil {
		return err
	}

	stream := d.GenerateInferenceDataset(ctx)
	defer stream.Close()
	results, err := inference.Infer(ctx, net, stream, d.BatchSize)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return errors.Wrapf(err, "create %s", out)
		}
		defer file.Close()
		w = file
	}
	if err := inference.WriteCSV(w, results); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Inferred.", "light_curves", len(results), "out", out)
	return nil
}
