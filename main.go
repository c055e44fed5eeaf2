package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/raine/rapidlisting/internal/cli"
)

const version = "0.1.0"

// shutdownSignals stop the serve command gracefully.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	root := cli.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(shutdownSignals...),
	); err != nil {
		os.Exit(1)
	}
}
