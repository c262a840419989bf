package main

import (
	"os"

	"github.com/insightdelivered/smartspend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
