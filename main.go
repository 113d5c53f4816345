package main

import (
	"os"

	"github.com/Kblack0610/clickytheclicker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
