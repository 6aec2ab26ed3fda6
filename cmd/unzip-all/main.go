package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/yarkm13/fetchkit"
)

func main() {
	if !fetchkit.CheckArgs(os.Stdout, os.Args) {
		os.Exit(1)
	}

	err := run(os.Args[1:])
	if err != nil {
		log.Error("Extraction failed", "err", err)
	}
	os.Exit(fetchkit.ExitCode(err))
}

func run(args []string) error {
	environ, err := fetchkit.LoadEnvironment()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("unzip-all", flag.ContinueOnError)
	targetDir := fs.String("tdir", "", "path of target directory that contains .zip files")
	outputDir := fs.String("odir", "", "path of output directory to send the unzipped files to")
	logLevel := fs.String("log-level", environ.LogLevel, "log level (debug, info, warn, error)")

	help, err := fetchkit.ParseFlags(fs, args)
	if help || err != nil {
		return err
	}
	if err := fetchkit.SetupLogging(*logLevel); err != nil {
		return err
	}
	if err := fetchkit.RequireFlags(fs, "tdir", "odir"); err != nil {
		return err
	}
	log.Info("Passed arguments", "target", *targetDir, "output", *outputDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = fetchkit.ExtractArchives(ctx, *targetDir, *outputDir)
	return err
}
