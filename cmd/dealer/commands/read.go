package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/xlsx"
)

type readFlags struct {
	source    string
	target    string
	query     string
	queryFile string
	queryKind string
	limit     int
	unsafe    bool
}

func (f *readFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Configured store to read from")
	cmd.Flags().StringVar(&f.query, "query", "", "SQL query (relational) or projection expression (DynamoDB)")
	cmd.Flags().StringVar(&f.queryFile, "query-file", "", "File with the query: local path or s3://bucket/key")
	cmd.Flags().StringVar(&f.queryKind, "query-kind", "", "DynamoDB query mode (only scan is supported)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of records (0 = no limit)")
	cmd.Flags().BoolVar(&f.unsafe, "unsafe", false, "Allow queries other than a single SELECT/WITH")
}

func (f *readFlags) options() adapters.ReadOptions {
	return adapters.ReadOptions{
		Query:     f.query,
		QueryFile: f.queryFile,
		QueryKind: f.queryKind,
		Limit:     f.limit,
	}
}

func newReadCommand(g *globalFlags) *cobra.Command {
	var (
		rf    readFlags
		out   string
		sheet string
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a table into XLSX or JSON lines",
		Example: `  dealer read --source warehouse --target orders --query "SELECT * FROM orders" --out orders.xlsx
  dealer read --source events --target events --limit 100`,
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

			loader, closeFn, err := e.open(ctx, rf.source)
			if err != nil {
				return err
			}
			defer closeFn()

			ds, err := loader.Read(ctx, rf.target, rf.options())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return writeJSONLines(cmd.OutOrStdout(), ds)
			}
			if err := xlsx.ToXLSX(ds, out, sheet); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d record(s) written to %s\n", ds.Len(), out)
			return nil
		},
	}

	rf.bind(cmd)
	cmd.Flags().StringVar(&rf.target, "target", "", "Table to read")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output: .xlsx file or - for JSON lines on stdout")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX sheet name (default: target)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if sheet == "" {
			sheet = sheetName(rf.target)
		}
	}
	return cmd
}

// sheetName - имя листа из имени таблицы без схемы
func sheetName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		table = table[i+1:]
	}
	return table
}

func writeJSONLines(w io.Writer, ds *dataset.Dataset) error {
	enc := json.NewEncoder(w)
	for _, rec := range ds.Records() {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}
