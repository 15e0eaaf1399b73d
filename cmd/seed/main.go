package main

import (
	"os"
)

func main() {
	if err := NewSeedCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
