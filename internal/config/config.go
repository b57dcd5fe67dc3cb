package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Gemini   GeminiConfig
	YouTube  YouTubeConfig
	LLM      LLMConfig
	Payload  PayloadConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Nats     NatsConfig
	Tracing  TracingConfig
	Pipeline PipelineConfig
	Prompts  PromptsConfig
}

type AppConfig struct {
	Host               string
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	KeywordModel string
	Timeout      time.Duration
}

type YouTubeConfig struct {
	APIKey string
}

type LLMConfig struct {
	Enabled     bool
	Provider    string // "llamacpp" or "ollama"
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type PayloadConfig struct {
	BaseURL string
}

type StorageConfig struct {
	// LessonBackend is "payload" or "local" (gorm + filesystem).
	LessonBackend string
	TempDir       string
	MediaDir      string
	LibraryDir    string
	YtDlpPath     string
	EdgeTTSPath   string
	Voice         string
}

type DatabaseConfig struct {
	Driver     string
	Connection string
	Debug      bool
}

type RedisConfig struct {
	// URL is optional; without it stream events stay on this instance.
	URL string
}

type NatsConfig struct {
	URL string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type PipelineConfig struct {
	RequestsPerMinute   int
	ExtractionAttempts  int
	DownloadConcurrency int
	ProgressTTL         time.Duration
	SweepInterval       time.Duration
	ChatTTL             time.Duration
	ChatCleanupInterval time.Duration
}

type PromptsConfig struct {
	FoundationFile string
	ChatbotFile    string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Host:               getEnv("HOST", "0.0.0.0"),
			Port:               getEnv("PORT", "8000"),
			Environment:        getEnv("ENVIRONMENT", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Gemini: GeminiConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			BaseURL:      getEnv("GEMINI_BASE_URL", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			KeywordModel: getEnv("GEMINI_KEYWORD_MODEL", ""),
			Timeout:      getEnvAsDuration("GEMINI_TIMEOUT", 5*time.Minute),
		},
		YouTube: YouTubeConfig{
			APIKey: getEnv("YOUTUBE_API_KEY", ""),
		},
		LLM: LLMConfig{
			Enabled:     getEnvAsBool("ENABLE_LOCAL_LLM", true),
			Provider:    getEnv("LLM_PROVIDER", "llamacpp"),
			BaseURL:     getEnv("LLAMA_CPP_HOST", "http://localhost:8080"),
			Model:       getEnv("LLM_MODEL", "llama3"),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4000),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		},
		Payload: PayloadConfig{
			BaseURL: getEnv("PAYLOAD_BASE_URL", "http://localhost:3000"),
		},
		Storage: StorageConfig{
			LessonBackend: getEnv("LESSON_BACKEND", "payload"),
			TempDir:       getEnv("TEMP_DIR", "temp"),
			MediaDir:      getEnv("MEDIA_DIR", "media"),
			LibraryDir:    getEnv("MEDIA_LIBRARY_DIR", "uploads"),
			YtDlpPath:     getEnv("YTDLP_PATH", "yt-dlp"),
			EdgeTTSPath:   getEnv("EDGE_TTS_PATH", "edge-tts"),
			Voice:         getEnv("TTS_VOICE", "en-US-AvaNeural"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Debug:      getEnvAsBool("DB_DEBUG", false),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Nats: NatsConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "nous-core"),
		},
		Pipeline: PipelineConfig{
			RequestsPerMinute:   getEnvAsInt("AI_REQUESTS_PER_MINUTE", 60),
			ExtractionAttempts:  getEnvAsInt("EXTRACTION_ATTEMPTS", 3),
			DownloadConcurrency: getEnvAsInt("DOWNLOAD_CONCURRENCY", 2),
			ProgressTTL:         getEnvAsDuration("PROGRESS_TTL", 2*time.Hour),
			SweepInterval:       getEnvAsDuration("PROGRESS_SWEEP_INTERVAL", 10*time.Minute),
			ChatTTL:             getEnvAsDuration("CHAT_SESSION_TTL", 24*time.Hour),
			ChatCleanupInterval: getEnvAsDuration("CHAT_CLEANUP_INTERVAL", time.Hour),
		},
		Prompts: PromptsConfig{
			FoundationFile: getEnv("PROMPTS_FILE", ""),
			ChatbotFile:    getEnv("CHATBOT_PROMPTS_FILE", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
