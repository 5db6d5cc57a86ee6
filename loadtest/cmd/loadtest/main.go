// Command loadtest drives a running lobby with simulated users.
//
//   - saturate: open and join N connections, then hold them
//   - invite:   pairs of users exchange game invites and responses
//
// Usage:
//
//	loadtest <command> [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "saturate":
		runSaturate(os.Args[2:])
	case "invite":
		runInvite(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loadtest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  saturate    Open and join N connections, then hold them")
	fmt.Println("  invite      Pairs of users exchange invites and measure delivery")
	fmt.Println()
	fmt.Println("Run 'loadtest <command> -h' for command-specific options.")
}
