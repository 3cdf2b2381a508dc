package main

import (
	"os"

	"github.com/dgnsrekt/murmur/cmd/murmur/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
