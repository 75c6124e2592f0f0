// Command wine-train fits the wine quality model and writes the model and
// scaler artifacts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/vinoscore/dataset"
	"github.com/YuminosukeSato/vinoscore/pkg/config"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/trainer"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "wine-train: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Parse("wine-train", args, config.TrainFlags)
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

	src := &dataset.Source{SHA256: cfg.Dataset.SHA256}
	defer src.Close()

	report, err := trainer.Run(ctx, cfg, src, logger)
	if err != nil {
		logger.Error("Training failed", err)
		return err
	}
	logger.Info("Training finished",
		log.R2ScoreKey, report.MeanR2,
		log.SamplesKey, report.Samples,
		log.DurationMsKey, report.Duration.Milliseconds(),
	)
	return report.Print(stdout)
}
