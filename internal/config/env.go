package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvPaths are tried in order; the first existing file wins.
var EnvPaths = []string{
	".env",
	".env.local",
	"../.env",
	"../../.env",
}

// LoadEnv loads environment variables from the first .env file found and
// returns its path, or "" when there is none. Variables already set in the
// process environment are not overridden.
func LoadEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = EnvPaths
	}

	for _, envPath := range paths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			return envPath, nil
		}
	}

	return "", nil
}
