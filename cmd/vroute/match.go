package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

func matchCmd() *cobra.Command {
	var (
		exts   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "match [dir] <path>",
		Short: "Show which route a path resolves to",
		Long: `Canonicalize a request path, match it against the route table built
from a routes directory and print the winning pattern and its parameters.

Examples:
  vroute match /blog/42
  vroute match ./app/routes /docs/guide/intro`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[len(args)-1]
			l, err := loadRoutes(resolveSource(args[:len(args)-1], exts))
			if err == nil {
				err = runMatch(cmd, l, path, asJSON)
			}
			if err != nil {
				reportErrors(cmd.ErrOrStderr(), err, asJSON)
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Route file extensions (default from vroute.json, or .go)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the match as JSON")

	return cmd
}

type matchResult struct {
	Pattern string         `json:"pattern"`
	File    string         `json:"file"`
	Params  map[string]any `json:"params"`
}

func runMatch(cmd *cobra.Command, l *loaded, path string, asJSON bool) error {
	m, err := l.Table.MatchPath(path)
	if err != nil {
		return err
	}
	if m == nil {
		return errs.New("R206").WithDetail("No route matches " + path)
	}

	res := matchResult{
		Pattern: m.Entry.String(),
		File:    l.File(m.Entry),
		Params:  paramValues(m.Params),
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return json.NewEncoder(out).Encode(res)
	}

	success(out, "%s → %s", path, res.Pattern)
	info(out, "file: %s", res.File)
	for _, p := range m.Params {
		switch {
		case !p.Present:
			info(out, "%s: (absent)", p.Name)
		case p.Kind.IsCatchAll():
			info(out, "%s: [%s]", p.Name, strings.Join(p.Segments, ", "))
		default:
			info(out, "%s: %s", p.Name, p.Value)
		}
	}
	return nil
}

// paramValues maps parameter names to their values: a string for single
// segments, a list for catch-alls and nil when an optional was not bound.
func paramValues(ps router.Params) map[string]any {
	out := make(map[string]any, len(ps))
	for _, p := range ps {
		switch {
		case !p.Present:
			out[p.Name] = nil
		case p.Kind.IsCatchAll():
			out[p.Name] = p.Segments
		default:
			out[p.Name] = p.Value
		}
	}
	return out
}
