package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite driver for the persistent index
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/engine"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/nodestore"
	"github.com/wkalt/treeq/storage"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

var (
	logLevel          string
	cacheSize         int64
	indexPath         string
	collation         string
	inlineLimit       int
	maxInlineCaptures int
	seed              int64
	variables         []string
	contextItem       string

	// Directory storage provider options
	dataDir string

	// S3 storage provider options
	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Bucket    string
	s3UseTLS    bool
	s3Region    string
)

var rootCmd = &cobra.Command{
	Use:   "treeq",
	Short: "Evaluate queries over JSON documents",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := parseLogLevel(logLevel)
		checkErr(err)
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func checkErr(err error) {
	if err != nil {
		bailf("error: %v", err)
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

func newStore() (storage.Provider, error) {
	s3requested := s3Endpoint != "" ||
		s3AccessKey != "" ||
		s3SecretKey != "" ||
		s3Bucket != ""
	if dataDir != "" && s3requested {
		return nil, fmt.Errorf("cannot specify both --data-dir and S3 options")
	}
	if !s3requested {
		return storage.NewDirectoryStore(util.When(dataDir == "", ".", dataDir)), nil
	}
	mc, err := minio.New(s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3AccessKey, s3SecretKey, ""),
		Secure: s3UseTLS,
		Region: s3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating S3 client: %w", err)
	}
	return storage.NewS3Store(mc, s3Bucket), nil
}

func newNodestore() (*nodestore.Nodestore, error) {
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	opts := []nodestore.Option{}
	if indexPath != "" {
		db, err := sql.Open("sqlite3", indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index database: %w", err)
		}
		db.SetMaxOpenConns(1)
		idx, err := index.NewSQLIndex(db)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nodestore.WithSQLIndex(idx))
	}
	return nodestore.New(store, util.NewLRU[string, *nodestore.Document](cacheSize), opts...), nil
}

// parseVariables parses name=value pairs. Values are bound as untyped atomic
// items, so they compare with numbers and strings alike.
func parseVariables(pairs []string) (map[string]value.Seq, error) {
	vars := make(map[string]value.Seq, len(pairs))
	for _, pair := range pairs {
		name, val, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", pair)
		}
		name = strings.TrimPrefix(name, "$")
		vars[name] = append(vars[name], value.Untyped(val))
	}
	return vars, nil
}

func newEngine(ns *nodestore.Nodestore) (*engine.Engine, error) {
	vars, err := parseVariables(variables)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithResolver(ns),
		engine.WithInlineLimit(inlineLimit),
		engine.WithMaxInlineCaptures(maxInlineCaptures),
	}
	if collation != "" {
		opts = append(opts, engine.WithCollation(collation))
	}
	if rootCmd.PersistentFlags().Changed("seed") {
		opts = append(opts, engine.WithSeed(seed))
	}
	if contextItem != "" {
		opts = append(opts, engine.WithContextItem(value.Untyped(contextItem)))
	}
	for _, name := range util.Okeys(vars) {
		opts = append(opts, engine.WithVariable(name, vars[name]))
	}
	return engine.New(opts...)
}

// setup builds the nodestore and engine from the persistent flags. If
// preload is a glob pattern, the matching documents are loaded before
// returning.
func setup(ctx context.Context, preload string) (*nodestore.Nodestore, *engine.Engine) {
	ns, err := newNodestore()
	checkErr(err)
	e, err := newEngine(ns)
	checkErr(err)
	if preload != "" {
		names, err := ns.Match(ctx, preload)
		checkErr(err)
		checkErr(ns.Prefetch(ctx, names))
	}
	return ns, e
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&logLevel, "log-level", "l", "warn", "Log level (debug, info, warn, error)")
	flags.Int64VarP(&cacheSize, "cache-size", "c", 64, "Number of parsed documents to cache")
	flags.StringVarP(&indexPath, "index-db", "", "", "SQLite database for persistent range indexes")
	flags.StringVarP(&collation, "collation", "", "", "Default collation URI")
	flags.IntVarP(&inlineLimit, "inline-limit", "", 50, "Largest function body inlined at a call site")
	flags.IntVarP(&maxInlineCaptures, "max-inline-captures", "", 5, "Captured variables above which closures are not inlined")
	flags.Int64VarP(&seed, "seed", "", 0, "Seed for random()")
	flags.StringArrayVarP(&variables, "var", "v", []string{}, "External variable as name=value (repeatable)")
	flags.StringVarP(&contextItem, "context-item", "", "", "Initial context item")

	flags.StringVarP(&dataDir, "data-dir", "d", "", "Data directory (for directory storage, default \".\")")

	flags.StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	flags.StringVar(&s3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	flags.StringVar(&s3SecretKey, "s3-secret-access-key", "", "S3 secret access key (for S3 storage)")
	flags.StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	flags.BoolVar(&s3UseTLS, "s3-use-tls", false, "Use TLS for S3 connections")
	flags.StringVar(&s3Region, "s3-region", "", "S3 region")
}
