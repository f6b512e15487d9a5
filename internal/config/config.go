package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string

	UploadDir   string
	MaxUploadMB int

	FontPath   string
	FontFamily string

	VisionProvider    string
	GeminiAPIKey      string
	GeminiModel       string
	OllamaURL         string
	OllamaModel       string
	VisionParallelism int

	VisionBreakerEnabled       bool
	VisionBreakerMinRequests   int
	VisionBreakerFailureRatio  float64
	VisionBreakerOpenTimeoutMs int

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWaitMs    int
}

// LoadDotEnv loads variables from the given files (".env" when none are given) without
// overriding the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		UploadDir:   mustEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadMB: mustEnvInt("MAX_UPLOAD_MB", 32),

		FontPath:   mustEnv("FONT_PATH", "./fonts/ipaexg.ttf"),
		FontFamily: mustEnv("FONT_FAMILY", "IPAexGothic"),

		VisionProvider:    mustEnv("VISION_PROVIDER", "gemini"),
		GeminiAPIKey:      mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:       mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaURL:         mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       mustEnv("OLLAMA_MODEL", "llava"),
		VisionParallelism: mustEnvInt("VISION_PARALLELISM", 1),

		VisionBreakerEnabled:       mustEnvBool("VISION_BREAKER_ENABLED", false),
		VisionBreakerMinRequests:   mustEnvInt("VISION_BREAKER_MIN_REQUESTS", 5),
		VisionBreakerFailureRatio:  mustEnvFloat("VISION_BREAKER_FAILURE_RATIO", 0.5),
		VisionBreakerOpenTimeoutMs: mustEnvInt("VISION_BREAKER_OPEN_TIMEOUT_MS", 30000),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "diagnosis.reports"),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 5),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIQueueWaitMs:    mustEnvInt("API_QUEUE_WAIT_MS", 250),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
