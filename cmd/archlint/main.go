package main

import (
	"os"

	"github.com/archlint/archlint/internal/adapters/inbound/cli"
)

func main() {
	os.Exit(cli.Execute())
}
