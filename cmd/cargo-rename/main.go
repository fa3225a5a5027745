package main

import (
	"os"

	"github.com/danieljhkim/cargo-rename/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Main())
}
