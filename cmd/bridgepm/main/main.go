package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/bridgepm/cmd/bridgepm"
	"github.com/arthur-debert/bridgepm/pkg/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := bridgepm.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// The report already listed every failed package.
		if !errors.Is(err, bridgepm.ErrPackagesFailed) {
			fmt.Fprintln(os.Stderr, ui.ErrorLine(err))
		}
		os.Exit(1)
	}
}
