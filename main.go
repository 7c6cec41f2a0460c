package main

import (
	"os"

	"reviewhooks/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
