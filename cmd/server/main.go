package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urbanair/aqkg/internal/cli"
)

// main runs the HTTP API; flags are those of "aqkg serve".
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx, append([]string{"serve"}, os.Args[1:]...), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
