package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/sqlast"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Collection string
	Columns    int
	Joins      int
	Parameters int
	SubQueries []string // aliases of the deferred to-many statements
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile an abstract query to relational IR",
		Long: `Compile an abstract query (YAML, JSON or CUE) to relational IR.

The output is the root statement, the deferred sub-query templates for
to-many fields, and the alias mapping the merge engine uses to shape rows.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	q, err := LoadQuery(path)
	if err != nil {
		return formatter.failLoad(err)
	}
	formatter.VerboseLog("Compiling query on %s", q.Collection)

	res, err := compiler.Compile(q)
	if err != nil {
		return formatter.fail(ExitFailure, MapCompileErrorToCode(err), err.Error(), nil)
	}

	stats := calculateStats(res)

	if opts.Output != "" {
		if err := writeResultToFile(res, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, res, stats, opts.Output)
}

// calculateStats computes summary statistics from a compilation result.
func calculateStats(res *sqlast.Result) CompilationStats {
	stats := CompilationStats{
		Collection: res.Root.Clauses.From.Table,
		Columns:    len(res.Root.Clauses.Select),
		Joins:      len(res.Root.Clauses.Joins),
		Parameters: len(res.Root.Parameters),
	}
	for _, sq := range res.SubQueries {
		stats.SubQueries = append(stats.SubQueries, sq.Alias())
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, res *sqlast.Result, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(res)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled query on %s\n\n", stats.Collection)
	fmt.Fprintf(w, "  columns:    %d\n", stats.Columns)
	fmt.Fprintf(w, "  joins:      %d\n", stats.Joins)
	fmt.Fprintf(w, "  parameters: %d\n", stats.Parameters)
	if len(stats.SubQueries) > 0 {
		fmt.Fprintf(w, "  sub-queries: %d (%s)\n", len(stats.SubQueries), strings.Join(stats.SubQueries, ", "))
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote relational IR to %s\n", outputFile)
	}

	return nil
}

// writeResultToFile writes the compilation result to a file as indented JSON.
func writeResultToFile(res *sqlast.Result, filename string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
