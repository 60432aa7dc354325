package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/querysql"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Dialect string
}

// RenderResult is the SQL of a query's root statement.
type RenderResult struct {
	Dialect    string   `json:"dialect"`
	SQL        string   `json:"sql"`
	Args       []any    `json:"args"`
	SubQueries []string `json:"sub_queries,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <query-file>",
		Short: "Render a query's root statement as SQL",
		Long: `Compile an abstract query and render its root statement as SQL.

Sub-queries for to-many fields depend on parent row values and run once
per parent row, so only their aliases are listed.

Examples:
  absql render orders.yaml
  absql render orders.yaml --dialect postgres
  absql render orders.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|postgres|mysql); defaults to the configured dialect or driver")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dialect, err := resolveDialect(opts.Dialect, opts.config())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	q, err := LoadQuery(path)
	if err != nil {
		return formatter.failLoad(err)
	}

	res, err := compiler.Compile(q)
	if err != nil {
		return formatter.fail(ExitFailure, MapCompileErrorToCode(err), err.Error(), nil)
	}

	sql, args, err := querysql.NewSQLCompiler(dialect).Compile(res.Root)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeRender, err.Error(), nil)
	}
	formatter.VerboseLog("Rendered %s statement with %d argument(s)", dialect.Name(), len(args))

	result := RenderResult{
		Dialect:    dialect.Name(),
		SQL:        sql,
		Args:       args,
		SubQueries: calculateStats(res).SubQueries,
	}
	if result.Args == nil {
		result.Args = []any{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, result.SQL)
	argsJSON, err := json.Marshal(result.Args)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "-- args: %s\n", argsJSON)
	for _, alias := range result.SubQueries {
		fmt.Fprintf(w, "-- sub-query %s: one statement per parent row\n", alias)
	}
	return nil
}

// resolveDialect picks the dialect: the flag, then the configured dialect,
// then the configured driver's.
func resolveDialect(flag string, cfg *Config) (querysql.Dialect, error) {
	name := flag
	if name == "" {
		name = cfg.Dialect
	}
	if name == "" {
		name = cfg.Database.Driver
	}
	return querysql.DialectFor(name)
}
