// Package config reads the small amount of environment-driven
// configuration spec.md §6.4 names. No third-party config library appears
// anywhere in the retrieval pack for plain env-var reads this small
// (viper/godotenv show up only as transitive or unrelated-service deps
// elsewhere in the pack) so this stays on os.LookupEnv, matching the
// teacher's own cmd/server/server.go which hardcodes its listen address
// the same direct way.
package config

import (
	"os"
	"strconv"
)

const (
	defaultPort         = 8000
	defaultHistoryLimit = 200
)

// Config is the process-wide configuration for the API server and engine.
type Config struct {
	Port         int
	HistoryLimit int
}

// Load reads Config from the environment, falling back to spec.md's
// documented defaults.
func Load() Config {
	return Config{
		Port:         envInt("PORT", defaultPort),
		HistoryLimit: envInt("HISTORY_LIMIT", defaultHistoryLimit),
	}
}

func envInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
