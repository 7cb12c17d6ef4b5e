package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/janisto/wallet-profiles/internal/cli"
	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	_ = applog.Sync()

	if err != nil {
		if !errors.Is(err, cli.ErrInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
