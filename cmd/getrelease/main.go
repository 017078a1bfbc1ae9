package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	root := newRootCommand(newApp())

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
