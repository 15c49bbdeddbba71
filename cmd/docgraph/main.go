package main

import (
	"os"

	"github.com/OFFIS-RIT/docgraph/internal/util"
)

func main() {
	util.LoadEnv()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
