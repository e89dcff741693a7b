package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/lightcurve"
	"github.com/neurlang/ramjet/viewer"
)

func main() {
	directory := flag.String("directory", ".", "directory searched for .fits light curves")
	start := flag.Int("start", 0, "index of the first light curve shown")
	addr := flag.String("addr", ":8080", "listen address")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text, json")
	flag.Parse()

	logger := ctxlog.New(*logLevel, *logFormat, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := run(ctx, *directory, *start, *addr); err != nil {
		logger.Error("Viewer failed.", "error", err)
		os.Exit(1)
	}
}

func loadTess(ctx context.Context, path string) (*lightcurve.LightCurve, error) {
	lc, err := lightcurve.TessFromPath(path)
	if err != nil {
		return nil, err
	}
	return &lc.LightCurve, nil
}

func run(ctx context.Context, directory string, start int, addr string) error {
	log := ctxlog.FromContext(ctx)
	paths, err := datasets.GlobRecursive(ctx, directory, ".fits")
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.Errorf("no .fits files below %s", directory)
	}
	log.Info("Found light curves.", "count", len(paths), "directory", directory)

	p, err := viewer.NewPreloaderWithStartingIndex(ctx, paths, start, loadTess)
	if err != nil {
		return err
	}
	defer p.Close()

	server := &http.Server{
		Addr:              addr,
		Handler:           viewer.NewHandler(p),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errs := make(chan error, 1)
	go func() {
		log.Info("Listening.", "addr", addr)
		errs <- server.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
