// Command equery filters, orders and projects JSON-like records.
package main

import (
	"os"

	"github.com/roach88/equery/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
