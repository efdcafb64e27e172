package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/cli/util"
	"github.com/wkalt/treeq/engine"
	tqutil "github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

var (
	evalJSON    bool
	evalFile    string
	evalPreload string
	evalStats   bool
)

func evaluate(ctx context.Context, e *engine.Engine, query string, asJSON bool) error {
	q, err := e.Compile(ctx, query)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := util.NewEncoder(w)
	_, err = e.Stream(ctx, q, func(item value.Item) error {
		if asJSON {
			return enc.Encode(item)
		}
		_, err := fmt.Fprintln(w, item.String())
		return err
	})
	return err
}

var evalCmd = &cobra.Command{
	Use:   "eval [query]",
	Short: "Evaluate a query and print the result, one item per line",
	Run: func(cmd *cobra.Command, args []string) {
		query, err := util.ReadQuery(args, evalFile)
		checkErr(err)
		ctx := tqutil.WithContext(context.Background(), "query")
		_, e := setup(ctx, evalPreload)
		checkErr(evaluate(ctx, e, query, evalJSON))
		if evalStats {
			fmt.Fprint(os.Stderr, tqutil.FromContext(ctx).Print())
		}
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.PersistentFlags().BoolVarP(&evalJSON, "json", "", false, "Output newline-delimited JSON")
	evalCmd.PersistentFlags().StringVarP(&evalFile, "file", "f", "", "Read the query from a file")
	evalCmd.PersistentFlags().StringVarP(&evalPreload, "preload", "", "", "Glob of documents to load before evaluation")
	evalCmd.PersistentFlags().BoolVarP(&evalStats, "stats", "", false, "Print execution statistics to stderr")
}
