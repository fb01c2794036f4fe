// Package main is the entry point for frsmctl, the maintenance CLI of the
// training and certification service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	commands "frsm/cmd/frsmctl/internal/commands"
	"frsm/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	logging.Setup(logging.Options{Level: os.Getenv("FRSM_LOG_LEVEL")})

	rootCmd := commands.NewRootCommand(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}
