// mkvq queues disc images and disc folders and rips them to MKV by driving
// makemkvcon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mkvq:", err)
		os.Exit(1)
	}
}

func run() error {
	err := newRootCommand().Execute()
	// A Ctrl-C during a rip is a clean stop, not a failure to report.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
