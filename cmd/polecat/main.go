// Command polecat inspects Parquet files: it prints their contents, the
// first rows or the schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paveg/polecat"
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/logging"
	"github.com/paveg/polecat/internal/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func usage(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "polecat (version %s)\n\n", version.String())
		fmt.Fprintf(w, "Usage: polecat [options] FILE.parquet\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("polecat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs, stderr)

	versionFlag := fs.Bool("version", false, "Print version information and exit")
	configPath := fs.String("config", "", "Load engine configuration from a YAML or JSON `file`")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	head := fs.Int("head", -1, "Only read the first `N` rows")
	schemaOnly := fs.Bool("schema", false, "Print the schema instead of the rows")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *versionFlag {
		fmt.Fprint(stdout, version.Info().String())
		return 0
	}

	cfg := config.LoadFromEnv()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "polecat: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(stderr, cfg.WithDefaults().LogLevel, "logfmt")
	if err != nil {
		fmt.Fprintf(stderr, "polecat: %v\n", err)
		return 1
	}
	logger = log.With(logger, "cmd", "polecat")

	cfg = cfg.WithDefaults()
	warnings, err := config.Review(cfg, runtime.NumCPU())
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		return 1
	}
	for _, w := range warnings {
		level.Warn(logger).Log("msg", "configuration", "warning", w)
	}
	if err := polecat.SetConfig(cfg); err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		return 1
	}
	polecat.SetLogger(logger)
	defer polecat.SetLogger(nil)

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	path := fs.Arg(0)

	if err := inspect(ctx, path, *head, *schemaOnly, stdout, logger); err != nil {
		level.Error(logger).Log("msg", "inspect failed", "path", path, "kind", polecat.KindOf(err), "err", err)
		return 1
	}
	return 0
}

func inspect(ctx context.Context, path string, head int, schemaOnly bool, stdout io.Writer, logger log.Logger) error {
	lf, err := polecat.ScanParquet([]byte(path))
	if err != nil {
		return err
	}

	if schemaOnly {
		schema, err := lf.Schema(ctx)
		if err != nil {
			return err
		}
		for _, f := range schema.Fields() {
			fmt.Fprintf(stdout, "%s: %s\n", f.Name, f.Type)
		}
		return nil
	}

	var df *polecat.DataFrame
	if head >= 0 {
		df, err = lf.Fetch(ctx, head)
	} else {
		df, err = lf.Collect(ctx)
	}
	if err != nil {
		return err
	}
	defer df.Release()

	level.Info(logger).Log("msg", "read parquet", "path", path, "rows", df.Len(), "columns", df.Width())

	sink := polecat.SinkFunc(func(p []byte) polecat.Outcome {
		if _, err := stdout.Write(p); err != nil {
			return polecat.Abort
		}
		return polecat.Continue
	})
	return polecat.Show(df, sink)
}
