package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vartik/vartikgpt/internal/models"
)

// AppConfig is the process configuration, read once from the environment.
type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	DirectoryURL    string
	InferenceURL    string
	ProvisioningURL string
	IngestionURL    string
	GraphURL        string
	HTTPTimeout     time.Duration

	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AzureRedirectURL  string
	PostLogoutURL     string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RedisAddr     string
	PrefsTTL      time.Duration
	MongoURI      string
	MongoDB       string
	TranscriptTTL time.Duration
	PostgresURI   string

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantTLS    bool

	GCSBucket             string
	SpeechEnabled         bool
	GoogleCredentialsFile string

	RecentChatsInterval time.Duration
	AllowedOrigins      []string

	// seeds for sessions created on first sign-in
	DefaultLLMVendor    string
	DefaultLLMModel     string
	DefaultEmbLLMVendor string
	DefaultEmbLLMModel  string
	DefaultChunkingType string
	DefaultTemp         float64
	DefaultMaxTokens    int
}

// SessionDefaults returns the configured seeds as a models.SessionDefaults.
func (c *AppConfig) SessionDefaults() models.SessionDefaults {
	return models.SessionDefaults{
		LLMVendor:    c.DefaultLLMVendor,
		LLMModel:     c.DefaultLLMModel,
		EmbLLMVendor: c.DefaultEmbLLMVendor,
		EmbLLMModel:  c.DefaultEmbLLMModel,
		ChunkingType: c.DefaultChunkingType,
		Temp:         models.NewTemperature(c.DefaultTemp),
		MaxTokens:    models.NewMaxTokens(c.DefaultMaxTokens),
	}
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DirectoryURL:    strings.TrimRight(getEnv("DIRECTORY_API_URL", "https://vartikgptbackend.azurewebsites.net/api"), "/"),
		InferenceURL:    getEnv("INFERENCE_API_URL", "http://vartikgpt.eastus.azurecontainer.io:80/v1/vartikgpt/chat"),
		ProvisioningURL: strings.TrimRight(getEnv("PROVISIONING_API_URL", "http://dataingestion.eastus.azurecontainer.io:8011/v1/index"), "/"),
		IngestionURL:    getEnv("INGESTION_API_URL", "http://dataingestion.eastus.azurecontainer.io:80/v1/dataingestion/ingest"),
		GraphURL:        strings.TrimRight(getEnv("GRAPH_API_URL", "https://graph.microsoft.com/v1.0"), "/"),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 60*time.Second),

		AzureTenantID:     getEnv("AZURE_TENANT_ID", "common"),
		AzureClientID:     getEnv("AZURE_CLIENT_ID", ""),
		AzureClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
		AzureRedirectURL:  getEnv("AZURE_REDIRECT_URL", "http://localhost:8080/auth/callback"),
		PostLogoutURL:     getEnv("POST_LOGOUT_URL", "http://localhost:3000/"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "vartikgpt"),
		JWTTTL:    getDuration("JWT_TTL", 8*time.Hour),

		RedisAddr:     firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		PrefsTTL:      getDuration("PREFS_TTL", 0),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDB:       getEnv("MONGO_DB", "vartikgpt"),
		TranscriptTTL: getDuration("TRANSCRIPT_TTL", 7*24*time.Hour),
		PostgresURI:   getEnv("POSTGRES_URI", ""),

		QdrantHost:   getEnv("QDRANT_HOST", ""),
		QdrantPort:   getInt("QDRANT_PORT", 6334),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
		QdrantTLS:    getBool("QDRANT_TLS", false),

		GCSBucket:             getEnv("GCS_BUCKET", ""),
		SpeechEnabled:         getBool("SPEECH_ENABLED", false),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		RecentChatsInterval: getDuration("RECENT_CHATS_INTERVAL", 10*time.Second),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "")),

		DefaultLLMVendor:    getEnv("DEFAULT_LLM_VENDOR", ""),
		DefaultLLMModel:     getEnv("DEFAULT_LLM_MODEL", ""),
		DefaultEmbLLMVendor: getEnv("DEFAULT_EMB_VENDOR", ""),
		DefaultEmbLLMModel:  getEnv("DEFAULT_EMB_MODEL", ""),
		DefaultChunkingType: getEnv("DEFAULT_CHUNKING", ""),
		DefaultTemp:         getFloat("DEFAULT_TEMP", 0),
		DefaultMaxTokens:    getInt("DEFAULT_MAX_TOKENS", 0),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	if cfg.AzureClientID == "" {
		return nil, errors.New("AZURE_CLIENT_ID environment variable is not set")
	}
	if cfg.RecentChatsInterval <= 0 {
		cfg.RecentChatsInterval = 10 * time.Second
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
