package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"tabload/internal/config"
	"tabload/internal/datasource"
	"tabload/internal/datasource/httpds"
	"tabload/internal/etl"
	"tabload/internal/logging"
	"tabload/internal/metrics"
	"tabload/internal/metrics/datadog"
	"tabload/internal/metrics/prompush"
	"tabload/internal/parser/fsdb"
	jsonparser "tabload/internal/parser/json"
	"tabload/internal/rowsource"
	"tabload/internal/storage"
)

// Viper keys that do not follow the flag-name-to-snake-case rule.
var loadKeys = map[string]string{
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
	"statsd-addr":     "metrics.statsd_addr",
	"http-timeout":    "http.timeout",
	"http-retries":    "http.retries",
}

func newLoadCmd(s streams) *cobra.Command {
	var configFile string
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "load [input] [output]",
		Short: "Create a table from the input's columns and insert every row",
		Long: `Load reads input ("-" or omitted for stdin, a path, or an http(s) URL)
and loads it into output: the sqlite3 file, the PostgreSQL/MariaDB DSN, or for
the print backend an optional file (stdout when omitted).

List flags (-c, -i, -e, -v, -d) may be repeated.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags(), loadKeys, configFile)
			if err != nil {
				return err
			}
			l := loadFromViper(v, args)
			return runLoad(cmd.Context(), s, l, httpConfig(v))
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	f.StringArrayP("converters", "c", nil, "column type override name=type")
	f.Bool("delete", false, "delete existing rows before loading")
	f.String("log-level", def.LogLevel, "log level (debug, info, warning, error, critical)")
	f.StringArrayP("indexes", "i", nil, "comma-joined columns to index together")
	f.StringArrayP("extra-columns", "e", nil, "extra column name=type prepended to the table")
	f.StringArrayP("extra-values", "v", nil, "constant name=value prepended to every row")
	f.StringArrayP("drop-columns", "d", nil, "source column to leave out of the insert")
	f.StringP("database-type", "t", def.DatabaseType, "sink backend (see 'tabload backends')")
	f.String("table", def.Table, "destination table")
	f.Int("chunk-size", def.ChunkSize, "rows per transaction")
	f.String("input-format", def.InputFormat, "input format: fsdb, json or auto (by file extension)")
	f.Bool("normalize-names", false, "fold JSON keys into plain SQL identifiers")
	f.String("job", "", "job label for logs and metrics (default: table name)")
	f.String("metrics-backend", def.Metrics.Backend, "metrics backend: none, pushgateway or datadog")
	f.String("pushgateway-url", "http://localhost:9091", "Pushgateway base URL")
	f.String("statsd-addr", "127.0.0.1:8125", "DogStatsD address")
	f.Duration("http-timeout", 30*time.Second, "per-request timeout for URL inputs")
	f.Int("http-retries", 0, "retries for URL inputs")
	return cmd
}

// loadFromViper assembles the Load; positional arguments win over every
// other source.
func loadFromViper(v *viper.Viper, args []string) config.Load {
	l := config.Load{
		Job:            v.GetString("job"),
		Input:          v.GetString("input"),
		InputFormat:    v.GetString("input_format"),
		Output:         v.GetString("output"),
		DatabaseType:   v.GetString("database_type"),
		Table:          v.GetString("table"),
		Converters:     v.GetStringSlice("converters"),
		Indexes:        v.GetStringSlice("indexes"),
		ExtraColumns:   v.GetStringSlice("extra_columns"),
		ExtraValues:    v.GetStringSlice("extra_values"),
		DropColumns:    v.GetStringSlice("drop_columns"),
		Delete:         v.GetBool("delete"),
		ChunkSize:      v.GetInt("chunk_size"),
		NormalizeNames: v.GetBool("normalize_names"),
		LogLevel:       v.GetString("log_level"),
		Metrics: config.Metrics{
			Backend:        v.GetString("metrics.backend"),
			PushgatewayURL: v.GetString("metrics.pushgateway_url"),
			StatsdAddr:     v.GetString("metrics.statsd_addr"),
		},
	}
	if len(args) > 0 {
		l.Input = args[0]
	}
	if len(args) > 1 {
		l.Output = args[1]
	}
	return l
}

func httpConfig(v *viper.Viper) httpds.Config {
	return httpds.Config{
		Timeout:    v.GetDuration("http.timeout"),
		MaxRetries: v.GetInt("http.retries"),
	}
}

func runLoad(ctx context.Context, s streams, l config.Load, httpCfg httpds.Config) error {
	logger, err := logging.New(l.LogLevel, s.err)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	issues := config.Validate(l, storage.ListKinds())
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			logger.Warn(iss.Message, zap.String("path", iss.Path))
		}
	}
	if err := config.Err(issues); err != nil {
		return err
	}
	dialect, err := storage.DialectFor(l.DatabaseType)
	if err != nil {
		return err
	}
	format, err := inputFormat(l.InputFormat, l.Input)
	if err != nil {
		return err
	}

	flush := setupMetrics(l, logger)
	defer flush()

	logger.Info("load starting",
		zap.String("input", displayInput(l.Input)),
		zap.String("format", format),
		zap.String("database_type", l.DatabaseType),
		zap.String("table", l.Table),
		zap.Int("chunk_size", l.ChunkSize),
	)

	rc, err := datasource.Open(ctx, l.Input, s.in, httpCfg)
	if err != nil {
		return err
	}
	defer rc.Close()

	src, err := openRows(rc, format, l.NormalizeNames)
	if err != nil {
		return err
	}

	conn, err := storage.New(ctx, storage.Config{
		Kind:   l.DatabaseType,
		DSN:    l.Output,
		Out:    s.out,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	_, runErr := etl.Run(ctx, etl.Params{
		Sink:    conn,
		Dialect: dialect,
		Source:  src,
		Load:    l,
		Logger:  logger,
	})
	if err := conn.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close %s sink: %w", l.DatabaseType, err)
	}
	return runErr
}

// inputFormat resolves "auto" from the input's extension, ignoring a trailing
// compression suffix. Stdin and URLs without a recognizable extension are
// read as FSDB.
func inputFormat(format, input string) (string, error) {
	switch format {
	case "fsdb", "json":
		return format, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("%w: unknown input format %q", config.ErrConfig, format)
	}

	name := strings.ToLower(input)
	if i := strings.IndexAny(name, "?#"); i >= 0 && datasource.IsURL(input) {
		name = name[:i]
	}
	ext := filepath.Ext(name)
	switch ext {
	case ".gz", ".zst", ".xz", ".lz4":
		ext = filepath.Ext(strings.TrimSuffix(name, ext))
	}
	switch ext {
	case ".json", ".jsonl", ".ndjson":
		return "json", nil
	default:
		return "fsdb", nil
	}
}

func openRows(r io.Reader, format string, normalize bool) (rowsource.Source, error) {
	if format == "json" {
		return jsonparser.NewConverter(r, jsonparser.Options{NormalizeNames: normalize})
	}
	return fsdb.NewReader(r)
}

// setupMetrics installs the configured backend and returns the flush to defer.
// A backend that cannot start leaves metrics disabled; the load still runs.
func setupMetrics(l config.Load, logger *zap.Logger) func() {
	noop := func() {}
	var (
		b   metrics.Backend
		err error
	)
	switch l.Metrics.Backend {
	case "", "none":
		logger.Debug("metrics disabled")
		return noop
	case "pushgateway":
		b, err = prompush.NewBackend(l.JobName(), l.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       l.Metrics.StatsdAddr,
			GlobalTags: []string{"job:" + l.JobName()},
		})
	default:
		logger.Warn("unknown metrics backend; metrics disabled", zap.String("backend", l.Metrics.Backend))
		return noop
	}
	if err != nil {
		logger.Warn("metrics backend unavailable; metrics disabled",
			zap.String("backend", l.Metrics.Backend), zap.Error(err))
		return noop
	}

	metrics.SetBackend(b)
	logger.Info("metrics enabled", zap.String("backend", l.Metrics.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics flush failed", zap.Error(err))
		}
	}
}

func displayInput(input string) string {
	if input == "" || input == datasource.Stdin {
		return "stdin"
	}
	return input
}
