// SimpleCom - a serial terminal that bridges the console and a serial
// device.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"simplecom/cmd"
	"simplecom/config"
	"simplecom/internal/console"
	scerr "simplecom/internal/errors"
	"simplecom/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		logger := util.NewLogger(int(util.LogNormal))
		console.NewReporter(config.AppName, os.Stderr, logger).Report(err)
		cancel()
		os.Exit(scerr.ExitCode(err))
	}
}
