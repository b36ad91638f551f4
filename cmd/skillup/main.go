// Command skillup runs communication practice sessions: debates, mock
// interviews and speeches against an AI trainer.
//
// Usage:
//
//	skillup [flags] <command> [args]
//
// Commands:
//
//	serve     - websocket practice endpoint and feedback API
//	practice  - interactive practice session in the terminal
//	feedback  - list, show and delete stored feedback
//	personas  - list the trainer catalog
//
// Configuration comes from environment variables (see core.LoadConfig);
// flags override them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
