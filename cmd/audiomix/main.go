package main

import (
	"fmt"
	"os"

	"github.com/pipelined/audiomix"
)

const (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed (status %d): %v\n", audiomix.Status(err), err)
		return errorExitCode
	}
	return successExitCode
}
