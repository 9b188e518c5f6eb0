// backend/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gewnthar/tvreport/backend/apperrors"
)

func main() {
	// Secrets usually live in .env next to the binary; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Failed to load .env file: %v", err)
	}

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if apperrors.Is(err, apperrors.CodeConfigInvalid) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
