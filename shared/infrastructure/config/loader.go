package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env, then .env.<ENVIRONMENT>, then .env.local. Each
// later file overrides the previous ones; none of them is required.
func loadEnvFiles() error {
	if IsLambda() {
		return nil
	}

	if err := loadEnvFile(".env", godotenv.Load); err != nil {
		return err
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		if err := loadEnvFile(".env."+env, godotenv.Overload); err != nil {
			return err
		}
	}

	return loadEnvFile(".env.local", godotenv.Overload)
}

func loadEnvFile(name string, load func(...string) error) error {
	if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := load(name); err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	return nil
}
