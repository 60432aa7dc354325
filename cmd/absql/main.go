// Command absql compiles abstract queries into relational IR and SQL and
// streams merged nested results from a database.
//
// Usage:
//
//	absql [flags] <command>
//
// Commands that read a database (query) need --dsn, ABSQL_DATABASE_DSN or
// database.dsn in absql.yaml. Commands that only read query files
// (compile, validate, render) and the scenario runner (test) do not.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/absql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "absql: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
