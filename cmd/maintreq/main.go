package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/maintreq/internal/maintreqcli"
)

func main() {
	if err := maintreqcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, maintreqcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			maintreqcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
