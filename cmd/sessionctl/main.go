// Command sessionctl signs in to the identity service from a terminal and
// keeps the session alive. Cookies are kept in a file between invocations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "sessionctl:", err)
		os.Exit(1)
	}
}
