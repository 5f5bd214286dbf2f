// Package env resolves configuration values from an optional .env file with
// the process environment as fallback.
package env

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// candidates are resolved against the working directory; the second entry
// covers the cmd/ binaries run from their own directory.
var candidates = []string{".env", "../../.env"}

var (
	loadOnce sync.Once
	fileVars map[string]string
)

// SetupEnvFile loads the first readable .env file. A missing file is fine;
// container deployments configure through the process environment alone.
func SetupEnvFile() {
	loadOnce.Do(func() {
		for _, path := range candidates {
			if vars, err := godotenv.Read(path); err == nil {
				fileVars = vars
				return
			}
		}
		fileVars = map[string]string{}
	})
}

// GetEnv returns the value for key, preferring the .env file over the process
// environment, or def when neither sets it.
func GetEnv(key, def string) string {
	if val, ok := fileVars[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
