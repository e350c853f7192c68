package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env from the working directory and from the directory of
// the executable. Variables already present in the environment are kept. It
// returns the files that were loaded so the caller can log them once the
// logger is configured.
func LoadEnvFiles() []string {
	var loaded []string

	if err := godotenv.Load(); err == nil {
		loaded = append(loaded, ".env")
	}

	execPath, err := os.Executable()
	if err != nil {
		return loaded
	}
	envPath := filepath.Join(filepath.Dir(execPath), ".env")
	if err := godotenv.Load(envPath); err == nil {
		loaded = append(loaded, envPath)
	}

	return loaded
}
