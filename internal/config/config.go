// Package config loads runtime configuration from a best-effort .env file
// and environment variables into an explicit value that gets passed into
// each component at construction. No component reads the environment
// directly, so tests can inject fake credentials and limits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cfg holds all runtime configuration.
type Cfg struct {
	// Remote classifier credentials and limits.
	GeminiAPIKey   string        // GEMINI_API_KEY (required unless classification is skipped)
	GeminiModel    string        // GEMINI_MODEL, default gemini-2.0-flash
	RequestTimeout time.Duration // REQUEST_TIMEOUT_MS, default 45000
	WordsPerChunk  int           // MAX_WORDS_PER_CHUNK, default 600
	ChunkDelay     time.Duration // CHUNK_DELAY_MS, default 150; 0 disables pacing

	// OCR engine hints.
	OCRLang string // OCR_LANG, default eng
	OCRPSM  string // OCR_PSM, default 6

	// Audit trail. Empty disables it.
	AuditDB string // AUDIT_DB, e.g. redactions.db
}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	cfg := &Cfg{
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		OCRLang:      strings.TrimSpace(os.Getenv("OCR_LANG")),
		OCRPSM:       strings.TrimSpace(os.Getenv("OCR_PSM")),
		AuditDB:      strings.TrimSpace(os.Getenv("AUDIT_DB")),
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.OCRLang == "" {
		cfg.OCRLang = "eng"
	}
	if cfg.OCRPSM == "" {
		cfg.OCRPSM = "6"
	}

	var err error
	if cfg.RequestTimeout, err = envMillis("REQUEST_TIMEOUT_MS", 45000); err != nil {
		return nil, err
	}
	if cfg.ChunkDelay, err = envMillis("CHUNK_DELAY_MS", 150); err != nil {
		return nil, err
	}
	if cfg.WordsPerChunk, err = envInt("MAX_WORDS_PER_CHUNK", 600); err != nil {
		return nil, err
	}
	if cfg.WordsPerChunk < 1 {
		return nil, fmt.Errorf("config: MAX_WORDS_PER_CHUNK must be positive, got %d", cfg.WordsPerChunk)
	}

	return cfg, nil
}

// RequireGeminiKey validates the credential needed for remote
// classification, with an actionable message.
func (c *Cfg) RequireGeminiKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY missing; put it in .env or the environment, or run with -skip-pii")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, raw)
	}
	return v, nil
}

func envMillis(key string, def int) (time.Duration, error) {
	v, err := envInt(key, def)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return time.Duration(v) * time.Millisecond, nil
}
