package main

import (
	"os"

	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd()))
}
