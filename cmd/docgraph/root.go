package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/logger/console"
)

type globalOptions struct {
	verbose bool
	logJSON bool
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	run := newRunOptions()

	root := &cobra.Command{
		Use:   "docgraph",
		Short: "Build a knowledge graph from exported wiki documents",
		Long: `docgraph extracts people, meetings, decisions, action items and
organisational entities from JSON document exports and loads them into a
property graph stored in PostgreSQL.

Running docgraph without a subcommand is the same as "docgraph run".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  global.verbose,
				JSON:   global.logJSON,
				Prefix: "docgraph",
				Writer: os.Stderr,
			}))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, run)
		},
	}

	root.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", util.GetEnvBool("DEBUG", false), "enable debug logging")
	root.PersistentFlags().BoolVar(&global.logJSON, "log-json", false, "write logs as JSON")
	run.bind(root)

	root.AddCommand(newRunCmd(run), newMigrateCmd(), newSchemaCmd())
	return root
}
