package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/javacontext-mcp/internal/config"
	"github.com/dshills/javacontext-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var configFlag string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "javacontext",
		Short: "Java search and snippet evaluation over MCP",
		Long: `JavaContext indexes Java sources and class files, answers declaration and
reference searches against the indexes and compiles code snippets in the
context of indexed types.

Run "javacontext serve" to expose the tools to an MCP client over stdio.`,
		Version:       fmt.Sprintf("%s (built %s, %s, driver %s)", version, buildTime, storage.BuildMode, storage.DriverName),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file (default $"+config.EnvConfigPath+" or ~/.javacontext/config.toml)")

	cmd.AddCommand(newServeCmd(), newIndexCmd(), newSearchCmd(), newEvalCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
