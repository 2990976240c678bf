package commands

import (
	"github.com/spf13/cobra"

	"github.com/ruslano69/dealer/pkg/etl"
)

func newTransferCommand(g *globalFlags) *cobra.Command {
	var (
		rf           readFlags
		wf           writeFlags
		sourceTarget string
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Read from one store and write to another",
		Example: `  dealer transfer --source warehouse --source-target orders --query-file s3://etl/orders.sql \
    --dest events --target orders --load-type merge --key id`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.guardQuery(ctx, rf.source, &rf); err != nil {
				return err
			}

			src, closeSrc, err := e.open(ctx, rf.source)
			if err != nil {
				return err
			}
			defer closeSrc()

			dst, closeDst, err := e.open(ctx, wf.dest)
			if err != nil {
				return err
			}
			defer closeDst()

			res, err := etl.Transfer(ctx, src, dst, etl.TransferOptions{
				Source:   sourceTarget,
				Read:     rf.options(),
				Target:   wf.target,
				Strategy: wf.loadType,
				Write:    wf.options(),
			})
			if err != nil {
				return err
			}
			printWriteResult(cmd, res)
			return nil
		},
	}

	rf.bind(cmd)
	wf.bind(cmd)
	cmd.Flags().StringVar(&sourceTarget, "source-target", "", "Table to read from the source store")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("dest")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
