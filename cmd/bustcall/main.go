package main

import (
	"os"

	"github.com/psantana5/bustcall/cmd/bustcall/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
