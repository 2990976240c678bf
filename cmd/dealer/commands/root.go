// Package commands содержит команды CLI dealer.
package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version - версия сборки (подставляется через -ldflags)
var Version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	console    bool
	logOutput  io.Writer
}

// NewRootCommand создает корневую команду со всеми подкомандами
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globalFlags{logOutput: os.Stderr})
}

func newRootCommand(g *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "dealer",
		Short:         "Load-strategy engine for DynamoDB and relational stores",
		Long:          "dealer reads tables from one store and writes them to another using append, overwrite, merge or update.",
		Version:       Version,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "dealer.yaml", "Path to the YAML configuration")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVar(&g.console, "log-console", false, "Human-readable log output")

	root.AddCommand(
		newReadCommand(g),
		newLoadCommand(g),
		newTransferCommand(g),
		newBackendsCommand(g),
	)
	return root
}
