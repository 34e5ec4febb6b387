package main

import (
	"os"

	"github.com/itayg2341/jansson/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
