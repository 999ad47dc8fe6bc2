package main

import (
	"os"

	"github.com/wonny/trendscan/cmd/trendscan/commands"
)

// main is the entry point for the trendscan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/trendscan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
