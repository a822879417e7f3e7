package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tabload/internal/datasource"
	"tabload/internal/datasource/httpds"
	"tabload/internal/parser/fsdb"
	jsonparser "tabload/internal/parser/json"
)

func newJSON2FSDBCmd(s streams) *cobra.Command {
	var (
		normalize bool
		comment   bool
	)
	cmd := &cobra.Command{
		Use:   "json2fsdb [input] [output]",
		Short: "Convert JSON lines into a tab-separated FSDB table",
		Long: `json2fsdb reads one JSON object, or an array of objects, per line and
writes an FSDB table whose header is the first object's keys. Nested values are
written as compact JSON. Input and output default to stdin and stdout.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := datasource.Stdin, ""
			if len(args) > 0 {
				in = args[0]
			}
			if len(args) > 1 {
				out = args[1]
			}
			trailer := ""
			if comment {
				trailer = "| " + strings.Join(append([]string{"tabload", cmd.Name()}, args...), " ")
			}
			return convertJSON(cmd.Context(), s, in, out, normalize, trailer)
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize-names", false, "fold keys into plain SQL identifiers")
	cmd.Flags().BoolVar(&comment, "comment", true, "append the command line as a trailer comment")
	return cmd
}

func convertJSON(ctx context.Context, s streams, input, output string, normalize bool, trailer string) (err error) {
	rc, err := datasource.Open(ctx, input, s.in, httpds.Config{})
	if err != nil {
		return err
	}
	defer rc.Close()

	conv, err := jsonparser.NewConverter(rc, jsonparser.Options{NormalizeNames: normalize})
	if err != nil {
		return err
	}

	w := s.out
	if output != "" && output != datasource.Stdin {
		var f *os.File
		f, err = os.Create(output)
		if err != nil {
			return fmt.Errorf("json2fsdb: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	fw, err := fsdb.NewWriter(w, conv.ColumnNames())
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := conv.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := fw.Write(row); err != nil {
			return err
		}
	}
	return fw.Close(trailer)
}
