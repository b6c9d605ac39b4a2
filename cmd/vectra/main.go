// Command vectra is the command-line surface of the vectra vector
// store: collection management, single-record insert/find, full-scan
// info, an HTTP server, and SQL bulk import.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	vectra "github.com/hupe1980/vectra"
	"github.com/hupe1980/vectra/internal/bulkimport"
	"github.com/hupe1980/vectra/internal/profile"
	"github.com/hupe1980/vectra/internal/server"
	"github.com/hupe1980/vectra/metadata"
)

var version = "dev"

var (
	valuesFlag   string
	metaFlags    []string
	topKFlag     int
	metricFlag   string
	dimFlag      int
	addrFlag     string
	importConfig bulkimport.Config
)

var rootCmd = &cobra.Command{
	Use:          "vectra",
	Short:        "Embedded vector store with typed metadata",
	Version:      version,
	SilenceUsage: true,
}

var createCmd = &cobra.Command{
	Use:   "create <db>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dimFlag <= 0 {
			return fmt.Errorf("dimension must be positive")
		}

		prof, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Create(cmd.Context(), args[0], dimFlag); err != nil {
			return err
		}
		fmt.Printf("created db '%s' with dimension %d in %s\n", args[0], dimFlag, prof.Data)
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <db>",
	Short: "Insert one vector with optional metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseValues(valuesFlag)
		if err != nil {
			return err
		}
		meta, err := parseMeta(metaFlags)
		if err != nil {
			return err
		}

		_, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		count, err := engine.Insert(cmd.Context(), args[0], values, meta)
		if err != nil {
			return err
		}
		if err := engine.Flush(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("inserted into '%s' (total=%d)\n", args[0], count)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <db>",
	Short: "Find the nearest records to a query vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := parseValues(valuesFlag)
		if err != nil {
			return err
		}

		_, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		results, err := engine.Find(cmd.Context(), args[0], query, topKFlag, metricFlag)
		if err != nil {
			return err
		}

		for rank, r := range results {
			source := "-"
			if v, ok := r.Meta.Find(vectra.SourceKey); ok {
				source = v.String()
			}
			fmt.Printf("%d\tidx=%d\tdist=%.6f\tsource=%s\tvalues=%v\n",
				rank+1, r.Index, r.Distance, source, r.Values)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <db>",
	Short: "Show a collection's dimension, count and metadata schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		info, err := engine.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("db:        %s\n", info.Name)
		fmt.Printf("dimension: %d\n", info.Dimension)
		fmt.Printf("count:     %d\n", info.Count)
		fmt.Printf("size:      %s (estimated)\n", humanize.Bytes(uint64(info.EstimatedBytes)))
		for _, field := range info.Schema {
			fmt.Printf("schema:    %s: %s\n", field.Key, strings.Join(field.Types, ", "))
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		prof, engine, err := setup()
		if err != nil {
			return err
		}
		prof.Addr = addrFlag

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("vectra serving", slog.String("addr", prof.Addr), slog.String("data", prof.Data))
		return server.New(engine, prof).Start(ctx)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import vectors from a SQL source into shard files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		prof, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		if importConfig.Driver == "" {
			importConfig.Driver = prof.Driver
		}
		if importConfig.DSN == "" {
			importConfig.DSN = prof.DSN
		}

		im := bulkimport.New(engine.Manager(), slog.Default())
		report, err := im.Run(cmd.Context(), importConfig)
		if err != nil {
			return err
		}

		fmt.Printf("job:      %s\n", report.JobID)
		fmt.Printf("imported: %d\n", report.Imported)
		fmt.Printf("skipped:  %d\n", report.Skipped)
		fmt.Printf("shards:   %d\n", report.Shards)
		fmt.Printf("elapsed:  %s\n", report.Elapsed.Round(time.Millisecond))
		return nil
	},
}

// setup builds the profile from flags and environment and constructs
// the engine over it.
func setup() (*profile.Profile, *vectra.Vectra, error) {
	prof := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Data:          viper.GetString("dir"),
		CacheMaxBytes: viper.GetInt("cache-max-bytes"),
		CacheTTL:      viper.GetDuration("cache-ttl"),
		FlushInterval: viper.GetDuration("flush-interval"),
		Compression:   viper.GetString("compression"),
		Driver:        viper.GetString("driver"),
		DSN:           viper.GetString("dsn"),
		Version:       version,
	}
	if err := prof.Validate(); err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	logger := vectra.NewTextLogger(level)
	slog.SetDefault(logger.Logger)

	codec, err := prof.Codec()
	if err != nil {
		return nil, nil, err
	}

	engine, err := vectra.New(
		vectra.WithDataDir(prof.Data),
		vectra.WithCompression(codec),
		vectra.WithCacheMaxBytes(prof.CacheMaxBytes),
		vectra.WithCacheTTL(prof.CacheTTL),
		vectra.WithFlushInterval(prof.FlushInterval),
		vectra.WithLogger(logger),
		vectra.WithMetricsCollector(&vectra.BasicMetricsCollector{}),
	)
	if err != nil {
		return nil, nil, err
	}
	return prof, engine, nil
}

func parseValues(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("values are required (-v 1.5,2.0)")
	}

	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q", part)
		}
		values = append(values, f)
	}
	return values, nil
}

func parseMeta(pairs []string) (metadata.Entries, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	entries := make(metadata.Entries, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata pair %q (want key=value)", pair)
		}
		entries = append(entries, metadata.Entry{Key: key, Value: metadata.String(value)})
	}
	return entries, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("dir", "data", "data directory for collection snapshots")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("mode", "dev", "run mode (dev or prod)")
	pf.String("compression", "none", "snapshot compression codec (none, zstd, lz4)")
	pf.Int("cache-max-bytes", vectra.DefaultCacheMaxBytes, "collection cache byte budget")
	pf.Duration("cache-ttl", vectra.DefaultCacheTTL, "idle lifetime of clean cached collections")
	pf.Duration("flush-interval", vectra.DefaultFlushInterval, "flush scheduler period")
	pf.String("driver", "sqlite", "bulk import database driver (sqlite or postgres)")
	pf.String("dsn", "", "bulk import database connection string")

	viper.SetEnvPrefix("vectra")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(pf))

	createCmd.Flags().IntVarP(&dimFlag, "dimension", "d", 0, "vector dimension of the new collection")

	insertCmd.Flags().StringVarP(&valuesFlag, "values", "v", "", "comma-separated vector components")
	insertCmd.Flags().StringArrayVarP(&metaFlags, "meta", "m", nil, "metadata key=value pair (repeatable)")

	findCmd.Flags().StringVarP(&valuesFlag, "values", "v", "", "comma-separated query vector")
	findCmd.Flags().IntVarP(&topKFlag, "topk", "k", vectra.DefaultK, "number of results")
	findCmd.Flags().StringVarP(&metricFlag, "metric", "f", "eu", "distance metric (eu, l1, cs)")

	serveCmd.Flags().StringVarP(&addrFlag, "addr", "a", ":8080", "listen address")

	importCmd.Flags().StringVar(&importConfig.Table, "table", "", "source table name")
	importCmd.Flags().StringVar(&importConfig.Query, "query", "", "source query (overrides --table)")
	importCmd.Flags().StringSliceVar(&importConfig.VectorColumns, "vector-cols", nil, "numeric columns forming the vector, in order")
	importCmd.Flags().StringSliceVar(&importConfig.MetaColumns, "meta-cols", nil, "columns carried as typed metadata")
	importCmd.Flags().StringVar(&importConfig.Collection, "collection", "", "target collection name")
	importCmd.Flags().IntVar(&importConfig.BatchSize, "batch-size", bulkimport.DefaultBatchSize, "records per shard file")
	importCmd.Flags().IntVar(&importConfig.RowsPerSecond, "rate", 0, "row rate limit (0 = unlimited)")
	importCmd.Flags().StringVar(&importConfig.Source, "source", "", "source tag stored on every record")

	rootCmd.AddCommand(createCmd, insertCmd, findCmd, infoCmd, serveCmd, importCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
