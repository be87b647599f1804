package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	daemon "github.com/sevlyar/go-daemon"

	"github.com/casescope/casescope/internal/cli"
)

func main() {
	root := cli.NewRoot()
	// The flag is registered only so cobra accepts and documents it.
	// Forking has to happen before cobra parses anything, so the actual
	// decision comes from wantsDaemon's raw-argument scan.
	root.PersistentFlags().Bool("daemon", false, "run in background (watch mode)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if wantsDaemon(os.Args[1:]) {
		cntxt := &daemon.Context{
			PidFileName: "casescope.pid",
			PidFilePerm: 0644,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if child != nil {
			return
		}
		defer cntxt.Release()
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// wantsDaemon peeks at the raw arguments because forking must happen
// before cobra takes over the process.
func wantsDaemon(args []string) bool {
	for _, a := range args {
		if a == "--daemon" || a == "--daemon=true" {
			return true
		}
	}
	return false
}
