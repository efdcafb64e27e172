package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/cli/util"
)

var explainFile string

var explainCmd = &cobra.Command{
	Use:   "explain [query]",
	Short: "Print the compiled form of a query and the rewrites applied to it",
	Run: func(cmd *cobra.Command, args []string) {
		query, err := util.ReadQuery(args, explainFile)
		checkErr(err)
		ctx := context.Background()
		_, e := setup(ctx, "")
		out, err := e.Explain(ctx, query)
		checkErr(err)
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.PersistentFlags().StringVarP(&explainFile, "file", "f", "", "Read the query from a file")
}
