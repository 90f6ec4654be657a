package main

import (
	"os"

	"github.com/yawuzz/sui-quiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
