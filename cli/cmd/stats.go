package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/cli/util"
	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/nodestore"
)

func printSummary(ctx context.Context, ns *nodestore.Nodestore, pattern string) error {
	names, err := ns.Match(ctx, pattern)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no documents match %s", pattern)
	}
	summary, err := ns.Summary(ctx, names)
	if err != nil {
		return err
	}
	headers := []string{"kind", "count", "min", "max", "mean"}
	rows := [][]string{}
	for _, kind := range []index.Kind{index.Text, index.Attribute} {
		s, ok := summary.NumStats[kind]
		if !ok || s.Count == 0 {
			rows = append(rows, []string{kind.String(), "0", "", "", ""})
			continue
		}
		rows = append(rows, []string{
			kind.String(),
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Min, 'g', -1, 64),
			strconv.FormatFloat(s.Max, 'g', -1, 64),
			strconv.FormatFloat(s.Mean, 'g', -1, 64),
		})
	}
	fmt.Printf("%d documents\n", summary.Documents)
	util.PrintTable(os.Stdout, headers, rows)
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats [glob]",
	Short: "Summarize the numeric values of the matching documents",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			bailf("stats requires exactly one glob pattern")
		}
		ctx := context.Background()
		ns, _ := setup(ctx, "")
		checkErr(printSummary(ctx, ns, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
