package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/pkg/router"
)

func routesCmd() *cobra.Command {
	var (
		exts   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "routes [dir]",
		Short: "List the route table in match order",
		Long: `Build the route table from a routes directory and print its entries
in the order the matcher tries them, with each pattern's shape, sort key
and declared methods.

Examples:
  vroute routes
  vroute routes ./app/routes --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadRoutes(resolveSource(args, exts))
			if err != nil {
				reportErrors(cmd.ErrOrStderr(), err, asJSON)
				return errReported
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(routeRows(l))
			}
			printRoutes(cmd.OutOrStdout(), l)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Route file extensions (default from vroute.json, or .go)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}

type routeRow struct {
	Pattern string   `json:"pattern"`
	Shape   string   `json:"shape"`
	Key     string   `json:"key"`
	Methods []string `json:"methods"`
	File    string   `json:"file"`
}

func routeRows(l *loaded) []routeRow {
	entries := l.Table.Entries()
	rows := make([]routeRow, len(entries))
	for i, e := range entries {
		rows[i] = routeRow{
			Pattern: e.String(),
			Shape:   e.Pattern().Shape(),
			Key:     e.Pattern().Key().String(),
			Methods: entryMethods(e),
			File:    l.File(e),
		}
	}
	return rows
}

// entryMethods lists the HTTP methods of an entry, plus WS when it accepts
// WebSocket connections.
func entryMethods(e *router.Entry) []string {
	b := e.Bundle()
	var out []string
	for _, m := range b.Methods() {
		out = append(out, string(m))
	}
	if b.WebSocket != nil {
		out = append(out, "WS")
	}
	return out
}

func printRoutes(w io.Writer, l *loaded) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPATTERN\tSHAPE\tKEY\tMETHODS\tFILE")
	for i, r := range routeRows(l) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, r.Pattern, r.Shape, r.Key, strings.Join(r.Methods, ","), r.File)
	}
	tw.Flush()
}
