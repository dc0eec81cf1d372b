// Command dta-dump is a debug harness for inspecting .dta files: it prints
// a file's schema, dumps rows to stdout, or exports them to Parquet.
package main

import (
	"fmt"
	"os"

	"github.com/korenmiklos/stata-dta/internal/dtacli"
)

func main() {
	if err := dtacli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
