package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/datasets/tess"
	"github.com/neurlang/ramjet/internal/config"
	"github.com/neurlang/ramjet/internal/ctxlog"

	_ "modernc.org/sqlite"
)

type pathsFlag []string

func (p *pathsFlag) String() string     { return strings.Join(*p, ",") }
func (p *pathsFlag) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	var configs pathsFlag
	flag.Var(&configs, "config", "HCL configuration file or directory, repeatable")
	directory := flag.String("directory", "", "directory searched for .fits light curves")
	seed := flag.Uint64("seed", 0, "split assignment seed, 0 for the clock")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text, json")
	flag.Parse()

	logger := ctxlog.New(*logLevel, *logFormat, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if err := run(ctx, configs, *directory, *seed); err != nil {
		logger.Error("Indexing failed.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configs []string, directory string, seed uint64) error {
	if len(configs) == 0 || directory == "" {
		return errors.New("both -config and -directory are required")
	}
	f, err := config.Load(ctx, configs...)
	if err != nil {
		return err
	}
	db, err := f.OpenMetadatabase(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("configuration has no metadatabase block")
	}
	defer db.Close()

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	start := time.Now()
	n, err := tess.IndexDirectory(ctx, db, directory, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Indexed light curves.", "count", n, "directory", directory, "elapsed", time.Since(start))
	return nil
}
