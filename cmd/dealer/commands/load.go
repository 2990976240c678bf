package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/etl"
	"github.com/ruslano69/dealer/pkg/xlsx"
)

type writeFlags struct {
	dest       string
	target     string
	loadType   string
	key        string
	expression string
}

func (f *writeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dest, "dest", "", "Configured store to write to")
	cmd.Flags().StringVar(&f.target, "target", "", "Table to write")
	cmd.Flags().StringVar(&f.loadType, "load-type", string(adapters.StrategyAppend), "Load strategy: append, overwrite, merge, update")
	cmd.Flags().StringVar(&f.key, "key", "", `Key columns: "id" or "pk,sk" (update, DynamoDB merge dedup)`)
	cmd.Flags().StringVar(&f.expression, "expression", "", `Update expression: "status=new_status,count=n"`)
}

func (f *writeFlags) options() adapters.WriteOptions {
	return adapters.WriteOptions{Key: f.key, Expression: f.expression}
}

func printWriteResult(cmd *cobra.Command, res etl.WriteResult) {
	if res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠ load type %q is not recognized, nothing written\n", res.Strategy)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d record(s) written to %s (%s, %s)\n",
		res.Rows, res.Target, res.Strategy, res.Duration().Round(time.Millisecond))
}

func newLoadCommand(g *globalFlags) *cobra.Command {
	var (
		wf       writeFlags
		fromXLSX string
		sheet    string
	)

	cmd := &cobra.Command{
		Use:     "load",
		Short:   "Load an XLSX sheet into a store",
		Example: `  dealer load --from-xlsx orders.xlsx --dest warehouse --target staging.orders --load-type overwrite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ds, err := xlsx.FromXLSX(fromXLSX, sheet)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", fromXLSX, err)
			}

			e, err := newEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.close()

			loader, closeFn, err := e.open(ctx, wf.dest)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := loader.Write(ctx, ds, wf.target, wf.loadType, wf.options())
			if err != nil {
				return err
			}
			printWriteResult(cmd, res)
			return nil
		},
	}

	wf.bind(cmd)
	cmd.Flags().StringVar(&fromXLSX, "from-xlsx", "", "XLSX file to load")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	_ = cmd.MarkFlagRequired("from-xlsx")
	_ = cmd.MarkFlagRequired("dest")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
