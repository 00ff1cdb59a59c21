// Package app wires the CLI commands: the scheduled crawl run, snapshot
// validation, the read-only API server, and a configuration health check.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "crawl", "run-once":
		return runCrawl(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "bite-pipeline CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bite-pipeline <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  crawl     Crawl all sources and publish fresh snapshots")
	fmt.Fprintln(os.Stderr, "  run-once  Alias for crawl")
	fmt.Fprintln(os.Stderr, "  validate  Validate snapshot JSON files against their schemas")
	fmt.Fprintln(os.Stderr, "  serve     Start the read-only snapshot API")
	fmt.Fprintln(os.Stderr, "  health    Verify configuration and data directory access")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"bite-pipeline <command> -h\" for command-specific flags.")
}
