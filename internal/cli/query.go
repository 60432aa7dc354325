package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/engine"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/querysql"
	"github.com/roach88/absql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Driver        string
	DSN           string
	Dialect       string
	Concurrency   int
	MaxSubQueries int

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, the engine's UUIDv7Generator is used.
	RunIDs engine.RunIDGenerator
}

// QueryResult holds the merged rows of a query.
type QueryResult struct {
	Rows  []ir.Object `json:"rows"`
	Count int         `json:"count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query-file>",
		Short: "Run a query against a database and print merged rows",
		Long: `Compile an abstract query, run it against a database and print the
merged nested rows.

The root statement runs once; each to-many field runs one statement per
parent row. In text mode rows are printed as canonical JSON, one per line,
as they are merged.

Database settings come from flags, ABSQL_* environment variables or
absql.yaml (database.driver, database.dsn, dialect, merge.concurrency,
merge.max_sub_queries).

Example:
  absql query orders.yaml --dsn ./shop.db
  absql query orders.yaml --driver postgres --dsn "postgres://localhost/shop?sslmode=disable"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database/sql driver (sqlite3|postgres|mysql)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect; defaults to the driver's")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "root rows resolved at once (1 = sequential)")
	cmd.Flags().IntVar(&opts.MaxSubQueries, "max-sub-queries", 0, "fail after this many sub-query executions (0 = unlimited)")

	return cmd
}

// resolve applies flags over the loaded configuration.
func (o *QueryOptions) resolve(cmd *cobra.Command) *Config {
	cfg := *o.config()
	if cmd.Flags().Changed("driver") {
		cfg.Database.Driver = o.Driver
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Database.DSN = o.DSN
	}
	if cmd.Flags().Changed("dialect") {
		cfg.Dialect = o.Dialect
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Merge.Concurrency = o.Concurrency
	}
	if cmd.Flags().Changed("max-sub-queries") {
		cfg.Merge.MaxSubQueries = o.MaxSubQueries
	}
	return &cfg
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.resolve(cmd)

	if cfg.Database.DSN == "" {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "database.dsn is required (--dsn, ABSQL_DATABASE_DSN or absql.yaml)", nil)
	}

	q, err := LoadQuery(path)
	if err != nil {
		return formatter.failLoad(err)
	}
	res, err := compiler.Compile(q)
	if err != nil {
		return formatter.fail(ExitFailure, MapCompileErrorToCode(err), err.Error(), nil)
	}

	storeOpts := []store.Option{store.WithLogger(slog.Default())}
	if cfg.Dialect != "" {
		dialect, err := querysql.DialectFor(cfg.Dialect)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		storeOpts = append(storeOpts, store.WithDialect(dialect))
	}

	slog.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, storeOpts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	mergeOpts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithConcurrency(cfg.Merge.Concurrency),
		engine.WithMaxSubQueries(cfg.Merge.MaxSubQueries),
	}
	if opts.RunIDs != nil {
		mergeOpts = append(mergeOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	merger := engine.New(st, querysql.ColumnName, mergeOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := merger.Run(ctx, res)
	if err != nil {
		return outputMergeError(formatter, "", err)
	}
	defer stream.Close()

	result := QueryResult{Rows: []ir.Object{}}
	for {
		row, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return outputMergeError(formatter, stream.RunID(), err)
		}
		result.Rows = append(result.Rows, row)
		result.Count++

		if formatter.Format != "json" {
			line, err := ir.MarshalCanonical(row)
			if err != nil {
				return err
			}
			fmt.Fprintln(formatter.Writer, string(line))
		}
	}

	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		return encoder.Encode(CLIResponse{Status: "ok", Data: result, RunID: stream.RunID()})
	}

	formatter.VerboseLog("%d row(s), run %s", result.Count, stream.RunID())
	return nil
}

// outputMergeError reports a failed run. Merge errors carry the failing
// row and alias as details.
func outputMergeError(formatter *OutputFormatter, runID string, err error) error {
	var details any
	var me *engine.MergeError
	if errors.As(err, &me) {
		details = map[string]any{
			"code":  string(me.Code),
			"row":   me.Row,
			"alias": me.Alias,
		}
		if me.RunID != "" {
			runID = me.RunID
		}
	}

	if formatter.Format == "json" {
		_ = json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: ErrCodeMerge, Message: err.Error(), Details: details},
			RunID:  runID,
		})
	} else {
		_ = formatter.Error(ErrCodeMerge, err.Error(), details)
	}
	return WrapExitError(ExitFailure, "query failed", err)
}
