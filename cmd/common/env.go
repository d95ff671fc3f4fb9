package common

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is reported but is not fatal to the
// caller.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("env file %s not found", path)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}
