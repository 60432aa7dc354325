package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/absql/internal/queryir"
)

// ValidationProblem is one shape problem in a query.
type ValidationProblem struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Problems []ValidationProblem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-file>",
		Short: "Validate a query without compiling it",
		Long: `Validate an abstract query's shape without compiling it.

Reports every problem at once (compile stops at the first): duplicate
aliases, mismatched key lists, operators that do not fit their condition,
unknown functions and negative limits.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	q, err := LoadQuery(path)
	if err != nil {
		return formatter.failLoad(err)
	}
	formatter.VerboseLog("Validating query on %s", q.Collection)

	res := queryir.Validate(q)
	if !res.OK() {
		problems := make([]ValidationProblem, len(res.Problems))
		for i, p := range res.Problems {
			problems[i] = ValidationProblem{Path: p.Path, Message: p.Message}
		}
		return outputValidationErrors(formatter, problems)
	}

	return outputValidateSuccess(formatter)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ Query valid")
	return nil
}

// outputValidationErrors outputs every validation problem.
func outputValidationErrors(formatter *OutputFormatter, problems []ValidationProblem) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:    false,
				Problems: problems,
			},
			Error: &CLIError{
				Code:    ErrCodeShape,
				Message: problems[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, p := range problems {
		if p.Path != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", p.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ErrCodeShape, p.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}
