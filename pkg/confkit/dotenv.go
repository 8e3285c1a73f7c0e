package confkit

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads a .env file into the process environment exactly
// once. ENV_FILE points at an explicit file; otherwise the search walks
// upwards from this package looking for .env alongside go.mod or .git.
// Existing variables win unless DOTENV_OVERLOAD=1; NO_DOTENV=1 disables
// loading entirely.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		findRoot(filepath.Dir(file), func(dir string) {
			_ = load(filepath.Join(dir, ".env"))
		})
		return
	}

	_ = load(".env")
}
