// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              string
	AnalysisBaseURL   string
	TranscriberVendor string
	DeepgramAPIKey    string
	GoogleCredsFile   string
	SessionIDFile     string
	DatabaseURL       string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		AnalysisBaseURL:   getEnv("ANALYSIS_BASE_URL", "http://localhost:8000"),
		TranscriberVendor: getEnv("TRANSCRIBER_VENDOR", "AnalysisService"),
		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		GoogleCredsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		SessionIDFile:     getEnv("SESSION_ID_FILE", "session_id"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY_ID"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET_NAME", "screening-recordings"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
