package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	errs "github.com/vango-dev/vroute/internal/errors"
)

func checkCmd() *cobra.Command {
	var (
		exts   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate a routes directory",
		Long: `Derive a pattern from every route file in a directory, build the
route table and report every problem found.

The directory defaults to routes.dir from vroute.json, or ./routes.

Examples:
  vroute check
  vroute check ./app/routes
  vroute check --ext .go,.md --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := resolveSource(args, exts)
			l, err := loadRoutes(src)
			if err != nil {
				reportErrors(cmd.ErrOrStderr(), err, asJSON)
				return errReported
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]any{
					"ok":     true,
					"dir":    src.Dir,
					"routes": l.Table.Len(),
				})
			}
			success(out, "%d routes in %s", l.Table.Len(), src.Dir)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Route file extensions (default from vroute.json, or .go)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print errors as JSON")

	return cmd
}

// reportErrors prints every classified error in err.
func reportErrors(w io.Writer, err error, asJSON bool) {
	classified := errs.Classify(err)
	if !asJSON {
		for _, e := range classified {
			fmt.Fprint(w, e.Format())
		}
		if len(classified) > 1 {
			fmt.Fprintf(w, "%d errors\n", len(classified))
		}
		return
	}

	items := make([]json.RawMessage, len(classified))
	for i, e := range classified {
		items[i] = json.RawMessage(e.FormatJSON())
	}
	out, _ := json.MarshalIndent(map[string]any{"ok": false, "errors": items}, "", "  ")
	fmt.Fprintln(w, string(out))
}
