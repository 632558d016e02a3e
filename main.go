package main

import (
	"os"

	// Embedded CA roots for minimal container images.
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/spigell/gh-screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
