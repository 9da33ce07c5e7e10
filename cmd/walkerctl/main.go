package main

import (
	"os"

	"example.com/lazywalker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
