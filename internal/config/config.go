// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultFallbackBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	Environment    string
	ServerPort     string
	JWTSecretKey   string
	LogLevel       string
	AllowedOrigins []string

	// Persistence
	DatabaseDriver   string
	DatabaseURL      string
	DBConnectRetries int
	DBConnectBackoff time.Duration

	// LLM providers
	PrimaryProvider   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	FallbackAPIKey    string
	FallbackBaseURL   string
	ChatModel         string
	FallbackChatModel string
	MaxTokens         int
	Temperature       float32
	SystemPrompt      string

	// Long-term memory
	MemoryProvider     string
	PineconeAPIKey     string
	PineconeIndexHost  string
	PineconeNamespace  string
	ChromemPath        string
	EmbeddingAPIKey    string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	GuestMessageLimit int

	// Notifications
	RedisAddr    string
	RedisChannel string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from the current process environment without loading .env.
func FromEnv() *Config {
	return &Config{
		Environment:  getEnv("ENV", "development"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),

		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DatabaseDriver:   strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:      getEnv("DATABASE_URL", "chatline.db"),
		DBConnectRetries: getEnvAsInt("DB_CONNECT_RETRIES", 3),
		DBConnectBackoff: getEnvAsDuration("DB_CONNECT_BACKOFF", 2*time.Second),

		PrimaryProvider:   strings.ToLower(getEnv("PRIMARY_LLM_PROVIDER", "openai")),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		FallbackAPIKey:    getEnv("FALLBACK_LLM_API_KEY", ""),
		FallbackBaseURL:   getEnv("FALLBACK_LLM_BASE_URL", DefaultFallbackBaseURL),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		FallbackChatModel: getEnv("FALLBACK_CHAT_MODEL", "openai/gpt-4o-mini"),
		MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 2048),
		Temperature:       getEnvAsFloat32("LLM_TEMPERATURE", 0.7),
		SystemPrompt:      getEnv("SYSTEM_PROMPT", ""),

		MemoryProvider:     strings.ToLower(getEnv("MEMORY_PROVIDER", "none")),
		PineconeAPIKey:     getEnv("PINECONE_API_KEY", ""),
		PineconeIndexHost:  getEnv("PINECONE_INDEX_HOST", ""),
		PineconeNamespace:  getEnv("PINECONE_NAMESPACE", "chat-memory"),
		ChromemPath:        getEnv("CHROMEM_PATH", ""),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),

		GuestMessageLimit: getEnvAsInt("GUEST_MESSAGE_LIMIT", 10),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "chatline.events"),
	}
}

// Validate rejects configurations the server cannot start with.
// Missing LLM credentials are allowed; turns then fail with LLM_NOT_CONFIGURED.
func (c *Config) Validate() error {
	missing := []string{}
	if c.IsProduction() && c.JWTSecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.MemoryProvider {
	case "none", "chromem":
	case "pinecone":
		if c.PineconeAPIKey == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if c.PineconeIndexHost == "" {
			missing = append(missing, "PINECONE_INDEX_HOST")
		}
	default:
		return fmt.Errorf("unsupported MEMORY_PROVIDER %q", c.MemoryProvider)
	}
	if c.PrimaryProvider != "openai" && c.PrimaryProvider != "gemini" {
		return fmt.Errorf("unsupported PRIMARY_LLM_PROVIDER %q", c.PrimaryProvider)
	}
	if c.GuestMessageLimit < 1 {
		return fmt.Errorf("GUEST_MESSAGE_LIMIT must be positive")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment gates internal error detail in client responses.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strValue, 32)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as float. Using default value.", key)
		return defaultValue
	}
	return float32(f)
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
