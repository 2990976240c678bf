package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/config"
)

func newBackendsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List configured stores and supported store types",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(g.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configured stores (%d):\n", len(cfg.Backends))
			for _, name := range cfg.BackendNames() {
				b := cfg.Backends[name]
				fmt.Fprintf(out, "  %-20s %s\n", name, b.Type)
			}
			fmt.Fprintf(out, "Supported types: %s\n", strings.Join(adapters.GetRegisteredTypes(), ", "))
			return nil
		},
	}
}
