// tcptap - an intercepting TCP relay that hex-dumps the traffic it
// forwards.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tcptap/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tcptap: %v\n", err)
		os.Exit(1)
	}
}
