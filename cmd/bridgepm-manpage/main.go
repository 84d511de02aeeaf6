package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/bridgepm/cmd/bridgepm"
	"github.com/arthur-debert/bridgepm/internal/version"
)

func main() {
	rootCmd := bridgepm.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "BRIDGEPM",
		Section: "1",
		Source:  "bridgepm " + version.Version,
		Manual:  "bridgepm manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
