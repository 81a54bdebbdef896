// Package main runs the bloomy command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	bloomycmd "github.com/louisbranch/bloomy/internal/cmd/bloomy"
	"github.com/louisbranch/bloomy/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bloomycmd.Execute(ctx, bloomycmd.Streams{}, os.Args[1:]); err != nil {
		stop()
		config.Exit(err)
	}
}
