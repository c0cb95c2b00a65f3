package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// Load reads the .env file specified by PFC_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("PFC_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL is optional. Without it the SOAR session archive is disabled.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the server's default LLM provider.
// Empty means requests must carry their own inference config.
// Valid values: openai, anthropic, gemini, cerebras, ollama, mock
func LLMProvider() string {
	return strings.ToLower(os.Getenv("LLM_PROVIDER"))
}

// LLMModel overrides the provider's default model.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

// LLMBaseURL points local inference at an OpenAI-compatible server.
func LLMBaseURL() string {
	return os.Getenv("LLM_BASE_URL")
}

// InferenceMode returns "api" or "local". Defaults to "api".
func InferenceMode() domain.InferenceMode {
	if strings.EqualFold(os.Getenv("INFERENCE_MODE"), string(domain.InferenceLocal)) {
		return domain.InferenceLocal
	}
	return domain.InferenceAPI
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock", "ollama", "":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// DefaultInference assembles the server-side inference defaults. It is the
// zero config when neither LLM_PROVIDER nor local mode is set.
func DefaultInference() domain.InferenceConfig {
	mode := InferenceMode()
	if LLMProvider() == "" && mode != domain.InferenceLocal {
		return domain.InferenceConfig{}
	}
	return domain.InferenceConfig{
		Mode:     mode,
		Provider: LLMProvider(),
		Model:    LLMModel(),
		APIKey:   LLMAPIKey(),
		BaseURL:  LLMBaseURL(),
	}
}

// LLMCallTimeout bounds every individual model call.
// Defaults to 60s if not set.
func LLMCallTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("LLM_CALL_TIMEOUT"))
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// LLMRateLimitRPS throttles outbound model calls per run client.
// Zero (the default) disables throttling.
func LLMRateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("LLM_RPS"), 64)
	if err != nil || rps < 0 {
		return 0
	}
	return rps
}

// LLMRateLimitBurst defaults to 4.
func LLMRateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("LLM_BURST"))
	if err != nil || burst <= 0 {
		return 4
	}
	return burst
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "mock" so the archive works without an OpenAI key.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// APIKey is the optional static bearer token guarding /v1 routes.
func APIKey() string {
	return os.Getenv("PFC_API_KEY")
}

// TuningFile is the optional YAML file overriding pipeline tuning.
func TuningFile() string {
	return os.Getenv("PFC_TUNING_FILE")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 20 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 20
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 10 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 10
	}
	return burst
}

// ArchiveRetention is how long archived SOAR sessions are kept.
// Zero (the default) keeps them forever.
func ArchiveRetention() time.Duration {
	days, err := strconv.Atoi(os.Getenv("SOAR_ARCHIVE_RETENTION_DAYS"))
	if err != nil || days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// ArchiveExpiryInterval returns how often expired sessions are swept.
// Defaults to 1h if not set.
func ArchiveExpiryInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SOAR_ARCHIVE_EXPIRY_INTERVAL"))
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
