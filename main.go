package main

import "github.com/wkalt/treeq/cli/cmd"

func main() {
	cmd.Execute()
}
