// Command gridmap partitions a study area into substation service
// territories and infers the feeding hierarchy between substations.
package main

import (
	"fmt"
	"os"

	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// Exit codes; an empty snapshot is not a failed run.
const (
	exitFailure    = 1
	exitEmptyInput = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case network.IsRecoverable(err):
		return exitFailure
	default:
		return exitEmptyInput
	}
}
