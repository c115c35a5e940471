package main

import (
	"os"

	"github.com/telhawk-systems/telhawk-loader/cmd/loader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
