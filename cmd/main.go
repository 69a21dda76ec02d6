package main

import (
	"os"

	"github.com/aerolex/aerolex/cmd/aerolex"
)

func main() {
	if err := aerolex.Execute(); err != nil {
		os.Exit(1)
	}
}
