package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/javacontext-mcp/internal/search"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
)

func newSearchCmd() *cobra.Command {
	var (
		searchFor string
		limitTo   string
		rule      string
		paths     []string
	)
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search the indexed projects for declarations or references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sf, ok := pattern.ParseSearchFor(searchFor)
			if !ok {
				return fmt.Errorf("unknown --for %q", searchFor)
			}
			lt, ok := pattern.ParseLimitTo(limitTo)
			if !ok {
				return fmt.Errorf("unknown --limit-to %q", limitTo)
			}
			mr, err := pattern.ParseMatchRule(rule)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, err := openWorkspace(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := w.Close(); err == nil {
					err = cerr
				}
			}()

			p := w.engine.CreatePattern(args[0], sf, lt, mr)
			if p == nil {
				return fmt.Errorf("malformed %s pattern %q", sf, args[0])
			}
			var sc scope.Scope
			if len(paths) > 0 {
				js, err := w.engine.CreateJavaSearchScope(paths, true)
				if err != nil {
					return err
				}
				sc = js
			}

			var collector search.MatchCollector
			res, err := w.engine.Search(cmd.Context(), p, sc, &collector)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Kind", "Element", "Accuracy", "Path", "Offset"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			for _, m := range collector.Matches() {
				table.Append([]string{
					string(m.Kind),
					m.Element.Signature(),
					m.Accuracy.String(),
					m.Resource,
					fmt.Sprintf("%d", m.Offset),
				})
			}
			table.SetFooter([]string{"", "", "", "Total", fmt.Sprintf("%d", len(collector.Matches()))})
			table.Render()
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "incomplete: %s: %v\n", f.Container, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&searchFor, "for", "f", "type", "element kind: type, class, interface, enum, annotation, record, method, constructor, field, package")
	cmd.Flags().StringVarP(&limitTo, "limit-to", "l", "declarations", "declarations, references, all_occurrences, implementors, read_accesses or write_accesses")
	cmd.Flags().StringVarP(&rule, "rule", "r", "EXACT|CASE_SENSITIVE", "match rule flags joined by '|'")
	cmd.Flags().StringArrayVarP(&paths, "scope", "s", nil, "file or directory to search in (can be repeated)")
	return cmd
}
