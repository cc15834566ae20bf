package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/maintreq/internal/maintreqcli"
)

// Running from the repository root behaves like "maintreq run" when no
// subcommand is given.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"run"}
	}
	if err := maintreqcli.Execute(args); err != nil {
		if errors.Is(err, maintreqcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			maintreqcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
