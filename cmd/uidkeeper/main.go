package main

import (
	"os"

	"github.com/uidkeeper/uidkeeper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
