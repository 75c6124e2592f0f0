// Command wine-serve loads the trained artifacts once and serves the
// assessment page.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/vinoscore/artifact"
	"github.com/YuminosukeSato/vinoscore/pkg/config"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/predictor"
	"github.com/YuminosukeSato/vinoscore/web"
	"github.com/spf13/pflag"
)

// missingAssetsMessage is printed instead of a stack trace when either
// artifact file is absent.
const missingAssetsMessage = "Diagnostic assets missing. Please run wine-train."

// errReported means the user has already been told what went wrong.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return
	case errors.Is(err, errReported):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "wine-serve: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Parse("wine-serve", args, config.ServeFlags)
	if err != nil {
		return err
	}

	logger, err := log.New(log.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: stderr,
	})
	if err != nil {
		return err
	}
	log.SetLogger(logger)

	arts, err := artifact.LoadArtifacts(cfg.Artifacts.ModelPath, cfg.Artifacts.ScalerPath)
	var missing *errors.ArtifactMissingError
	if errors.As(err, &missing) {
		fmt.Fprintln(stderr, missingAssetsMessage)
		return errReported
	}
	if err != nil {
		return err
	}
	logger.Info("Artifacts loaded",
		log.ArtifactPathKey, cfg.Artifacts.ModelPath,
		log.ChecksumKey, arts.Model.WeightHash(),
	)

	p, err := predictor.NewPredictor(arts)
	if err != nil {
		return err
	}
	return web.NewServer(cfg.Server, p, cfg.Training.Folds, logger).ListenAndServe(ctx)
}
