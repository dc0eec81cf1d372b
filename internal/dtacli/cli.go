// Package dtacli implements the command-line interface for dta-dump.
package dtacli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/korenmiklos/stata-dta/internal/dtadata"
	"github.com/korenmiklos/stata-dta/internal/dtatype"
	"github.com/korenmiklos/stata-dta/pkg/dtaexport"
	"github.com/korenmiklos/stata-dta/pkg/dtareader"
)

// Run executes the CLI with the given arguments (typically os.Args[1:]).
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dta-dump <command> [options]\ncommands: schema, dump, export")
	}

	switch args[0] {
	case "schema":
		return runSchema(args[1:])
	case "dump":
		return runDump(args[1:])
	case "export":
		return runExport(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return errors.New("usage: dta-dump schema <path>")
	}

	rd, err := dtareader.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer rd.Close()

	h := rd.Header()
	fmt.Printf("format_version: %d\n", h.FormatVersion)
	fmt.Printf("nobs: %d\n", rd.NObs())
	fmt.Printf("data_label: %q\n", h.DataLabel)
	fmt.Println("variables:")
	for _, v := range rd.Variables() {
		fmt.Printf("  %-32s %-9s %s\n", v.Name, dtatype.ToLogical(v.Type), v.Label)
	}
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	limit := fs.Int("n", 10, "maximum number of rows to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return errors.New("usage: dta-dump dump [-n rows] <path>")
	}

	rd, err := dtareader.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer rd.Close()

	printed := 0
	for printed < *limit {
		batch, err := rd.NextChunk()
		if err != nil {
			return fmt.Errorf("dump %s: %w", path, err)
		}
		if batch == nil {
			break
		}
		for row := 0; row < int(batch.Cardinality) && printed < *limit; row++ {
			printRow(batch, row)
			printed++
		}
	}
	return nil
}

func printRow(batch *dtadata.ColumnBatch, row int) {
	for ci, col := range batch.Columns {
		if ci > 0 {
			fmt.Print("\t")
		}
		if !col.Valid[row] {
			fmt.Print(".")
			continue
		}
		switch col.Type {
		case dtatype.LogicalTinyInt:
			fmt.Print(col.I8[row])
		case dtatype.LogicalSmallInt:
			fmt.Print(col.I16[row])
		case dtatype.LogicalInteger:
			fmt.Print(col.I32[row])
		case dtatype.LogicalFloat:
			fmt.Print(col.F32[row])
		case dtatype.LogicalDouble:
			fmt.Print(col.F64[row])
		default:
			fmt.Print(col.Str[row])
		}
	}
	fmt.Println()
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "output .parquet path (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return errors.New("usage: dta-dump export [-out file.parquet] <path>")
	}

	rd, err := dtareader.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer rd.Close()

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}

	pw, err := dtaexport.NewWriter(w, rd.Variables())
	if err != nil {
		return fmt.Errorf("open parquet writer: %w", err)
	}

	for {
		batch, err := rd.NextChunk()
		if err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
		if batch == nil {
			break
		}
		if err := pw.WriteBatch(batch); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
	}
	return pw.Close()
}
