// Package main provides the dylifo command line: one-shot narrative
// summaries and graph renderings of entity resolution results.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/DerwenAI/dylifo/internal/backend"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/pipeline"
)

const (
	Version = "0.1.0"
	appName = "dylifo"
)

// Exit codes by failure class.
const (
	exitOK         = 0
	exitOther      = 1
	exitConfig     = 2
	exitMalformed  = 3
	exitVocabulary = 4
	exitGeneration = 5
	exitBackend    = 6
)

func main() {
	util.LoadEnv()
	os.Exit(execute(os.Args[1:], backend.New, os.Stdout, os.Stderr))
}

// execute runs the command line in args and returns the process exit code.
func execute(args []string, factory pipeline.BackendFactory, stdout, stderr io.Writer) int {
	cmd := rootCmd(factory)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.ClassNone:
		return exitOK
	case pipeline.ClassConfig:
		return exitConfig
	case pipeline.ClassMalformed:
		return exitMalformed
	case pipeline.ClassVocabulary:
		return exitVocabulary
	case pipeline.ClassGeneration, pipeline.ClassTimeout:
		return exitGeneration
	case pipeline.ClassBackend:
		return exitBackend
	}
	return exitOther
}
