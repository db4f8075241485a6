package main

import (
	"os"

	"brands-console/cmd/brandsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
