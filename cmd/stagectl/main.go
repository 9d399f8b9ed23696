// Command stagectl edits the staged copy of a feature document from the
// command line. Configuration comes from STAGED_* environment variables.
package main

import (
	"context"
	"os"
)

func main() {
	if err := execute(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
