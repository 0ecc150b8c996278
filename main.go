// ./main.go
package main

import (
	"github.com/xkilldash9x/agentseek/cmd"
)

// main is the entry point for the agentseek backend.
// All command-line parsing, configuration and execution is handled in cmd.
func main() {
	cmd.Execute()
}
