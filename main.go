// Package main is the entry point for the cortexq CLI.
// It sends prompts to a language model exposed as a SQL function and returns structured answers.
package main

import (
	"cortexq/cli/cmd"
)

func main() {
	cmd.Execute()
}
