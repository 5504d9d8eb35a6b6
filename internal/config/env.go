package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvDocsDir      = "LOCALRAG_DOCS_DIR"
	EnvDataDir      = "LOCALRAG_DATA_DIR"
	EnvProvider     = "LOCALRAG_EMBEDDING_PROVIDER"
	EnvLogLevel     = "LOCALRAG_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files (./.env when none are
// given) without overriding variables that are already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// ApplyEnv overrides configuration values from the environment.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(EnvGeminiAPIKey); key != "" {
		c.Embedding.APIKey = key
	} else if key := os.Getenv(EnvGoogleAPIKey); key != "" {
		c.Embedding.APIKey = key
	}
	if v := os.Getenv(EnvDocsDir); v != "" {
		c.DocsDir = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}
