// Command agenix runs YAML message exchange tests and serves the HTTP queue
// bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errTestsFailed) {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
