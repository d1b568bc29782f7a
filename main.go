package main

import (
	"os"

	"github.com/pthm-cable/cicmesh/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
