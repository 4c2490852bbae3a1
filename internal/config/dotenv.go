package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the first existing .env file among paths, or ./.env and
// the config directory's .env when none are given. Variables already set in
// the environment win. It returns the loaded path, or "" when none existed.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(Dir(), ".env")}
	}

	for _, path := range paths {
		path = ExpandPath(path)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}
