package main

import (
	"fmt"
	"os"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
