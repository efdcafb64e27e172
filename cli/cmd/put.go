package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/nodestore"
)

func putFiles(ctx context.Context, ns *nodestore.Nodestore, prefix string, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := prefix + filepath.Base(path)
		if err := ns.Put(ctx, name, data); err != nil {
			return fmt.Errorf("failed to store %s: %w", path, err)
		}
		fmt.Println(name)
	}
	return nil
}

var putPrefix string

var putCmd = &cobra.Command{
	Use:   "put [file...]",
	Short: "Validate JSON documents and copy them into the data store",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			bailf("put requires at least one file")
		}
		ctx := context.Background()
		ns, _ := setup(ctx, "")
		checkErr(putFiles(ctx, ns, putPrefix, args))
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.PersistentFlags().StringVarP(&putPrefix, "prefix", "p", "", "Name prefix for stored documents")
}
