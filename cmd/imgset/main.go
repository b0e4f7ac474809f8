package main

import (
	"os"

	"github.com/bianoble/imgset/cmd/imgset/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
