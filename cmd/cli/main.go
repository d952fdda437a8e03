// Command cli is the operator tool for the mileage ledger: schema migrations,
// manual ledger writes, balance checks, replay verification and token minting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		stop()
		os.Exit(1)
	}
}
