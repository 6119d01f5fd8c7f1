package main

import (
	"os"

	"github.com/roach88/snapstrip/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
