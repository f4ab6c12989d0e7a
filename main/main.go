package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"parquet_batch/batch"
	"parquet_batch/config"
	"parquet_batch/footer"
)

const usage = `Parquet row-group batch reader.
Usage:
  pqbatch -h | --help
  pqbatch [--config=FILE] [--only-metadata] [--strict] [--debug] [--max-rows=N] [<file>]
Options:
  -h --help        Show this screen.
  --config=FILE    Read the file path from a reader configuration.
  --only-metadata  Stop after printing metadata, no values.
  --strict         Fail on columns with an unsupported physical type.
  --debug          Log at debug level.
  --max-rows=N     Stop printing after N rows [default: 1000].`

type options struct {
	Config       string
	OnlyMetadata bool
	Strict       bool
	Debug        bool
	MaxRows      string
	File         string
}

func main() {
	args, _ := docopt.ParseDoc(usage)
	var opts options
	if err := args.Bind(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if opts.Debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	maxRows, err := strconv.Atoi(opts.MaxRows)
	if err != nil || maxRows < 0 {
		fmt.Fprintln(os.Stderr, "error: --max-rows needs a non-negative integer")
		os.Exit(1)
	}

	if err := run(os.Stdout, opts, maxRows, logger); err != nil {
		level.Error(logger).Log("msg", "read failed", "err", err)
		os.Exit(1)
	}
}

func resolvePath(opts options, logger log.Logger) (string, error) {
	if opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return "", err
		}
		features, labels := cfg.Dims()
		level.Info(logger).Log("msg", "loaded config", "file", cfg.FilePath(), "features_dim", features, "labels_dim", labels)
		return cfg.FilePath(), nil
	}
	if opts.File == "" {
		return "", errors.New("either <file> or --config is required")
	}
	return opts.File, nil
}

func run(out io.Writer, opts options, maxRows int, logger log.Logger) error {
	path, err := resolvePath(opts, logger)
	if err != nil {
		return err
	}

	f, err := footer.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cache, err := footer.Open(f, footer.WithLogger(logger))
	if err != nil {
		return err
	}
	meta, err := cache.GetMetadata()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	readerOpts := []batch.Option{
		batch.WithLogger(logger),
		batch.WithMetrics(batch.NewMetrics(reg)),
		batch.WithAllocator(batch.NewLoggingAllocator(nil, logger)),
	}
	if opts.Strict {
		readerOpts = append(readerOpts, batch.WithStrictTypes())
	}
	rdr := batch.NewReader(cache, readerOpts...)
	sch, err := rdr.Schema()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "File name:", path)
	printMetadata(out, meta, sch)
	if opts.OnlyMetadata {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Data ===")
	printed := 0
	for i := 0; i < meta.NumRowGroups() && printed < maxRows; i++ {
		b, err := rdr.ReadBatch(i)
		if err != nil {
			return fmt.Errorf("row group %d: %w", i, err)
		}
		if err := b.Err(); err != nil {
			level.Warn(logger).Log("msg", "batch has undecoded columns", "row_group", i, "err", err)
		}
		n, err := printBatch(out, b, "  ", maxRows-printed)
		b.Release()
		if err != nil {
			return err
		}
		printed += n
	}
	fmt.Fprintf(out, "\nTotal rows printed: %d\n", printed)
	fmt.Fprintf(out, "Total rows in file: %d\n", meta.NumRows)

	logMetrics(logger, reg)
	return nil
}

func logMetrics(logger log.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		level.Warn(logger).Log("msg", "gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			kv := []interface{}{"msg", "metric", "name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, l := range m.GetLabel() {
				kv = append(kv, l.GetName(), l.GetValue())
			}
			level.Info(logger).Log(kv...)
		}
	}
}
