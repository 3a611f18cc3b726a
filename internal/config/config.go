package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	VocabPath string

	// Matching thresholds. The fuzzy-accept and review cutoffs were
	// chosen empirically; treat them as tuning knobs, not business
	// rules.
	FuzzyAcceptThreshold float64
	ReviewCutoff         float64
	GapThreshold         float64
	CategoryConfidence   float64
	KeywordConfidence    float64

	QuoteSaveRetries int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "quotescan.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		VocabPath: getEnv("VOCAB_PATH", ""),

		FuzzyAcceptThreshold: getEnvFloat("MATCH_FUZZY_THRESHOLD", 0.60),
		ReviewCutoff:         getEnvFloat("MATCH_REVIEW_CUTOFF", 0.80),
		GapThreshold:         getEnvFloat("MATCH_GAP_THRESHOLD", 0.05),
		CategoryConfidence:   getEnvFloat("MATCH_CATEGORY_CONFIDENCE", 0.30),
		KeywordConfidence:    getEnvFloat("MATCH_KEYWORD_CONFIDENCE", 0.40),

		QuoteSaveRetries: getEnvInt("QUOTE_SAVE_RETRIES", 3),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
