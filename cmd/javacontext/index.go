package main

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/javacontext-mcp/internal/indexer"
)

func newIndexCmd() *cobra.Command {
	var (
		exclude []string
		noTests bool
	)
	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index the Java sources and class files under each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			icfg := cfg.IndexerConfig()
			if noTests {
				icfg.IncludeTests = false
			}
			for _, p := range exclude {
				if !doublestar.ValidatePattern(p) {
					return fmt.Errorf("invalid exclude pattern %q", p)
				}
				icfg.Exclude = append(icfg.Exclude, p)
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

			ix := indexer.New(w.manager)
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Container", "Indexed", "Skipped", "Failed", "Removed", "Entries", "Duration"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			for _, root := range args {
				stats, err := ix.IndexContainer(cmd.Context(), root, icfg)
				if err != nil {
					return fmt.Errorf("failed to index %s: %w", root, err)
				}
				table.Append([]string{
					stats.Container,
					fmt.Sprintf("%d", stats.FilesIndexed),
					fmt.Sprintf("%d", stats.FilesSkipped),
					fmt.Sprintf("%d", stats.FilesFailed),
					fmt.Sprintf("%d", stats.FilesRemoved),
					fmt.Sprintf("%d", stats.EntriesExtracted),
					stats.Duration.Round(time.Millisecond).String(),
				})
				for _, msg := range stats.ErrorMessages {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "x", nil, "doublestar pattern of files to skip (can be repeated)")
	cmd.Flags().BoolVar(&noTests, "no-tests", false, "skip files under src/test")
	return cmd
}
