package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads process configuration from the environment, applying the
// defaults from spec §6. A .env file in the working directory is loaded
// first (and silently ignored if absent) so local/dev runs don't need
// exported shell variables.
func Load() Config {
	_ = godotenv.Overload()

	cfg := Config{
		StorageBackend: envOr("STORAGE_BACKEND", "s3"),
		S3: S3Config{
			Endpoint:     strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Bucket:       strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKey:    strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey:    strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
			Region:       envOr("S3_REGION", "us-east-1"),
			UsePathStyle: envBool("S3_USE_PATH_STYLE", false),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   envOr("EMBEDDING_BASE_URL", "https://api.openai.com"),
			Path:      envOr("EMBEDDING_PATH", "/v1/embeddings"),
			APIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIHeader: envOr("EMBEDDING_API_HEADER", "Authorization"),
			Model:     envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:   envInt("EMBEDDING_TIMEOUT_SECONDS", 30),
		},
		LLM: LLMConfig{
			Provider: envOr("LLM_PROVIDER", "openai"),
			BaseURL:  strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
			APIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:    envOr("LLM_MODEL", "gpt-4o-mini"),
			Timeout:  envInt("LLM_TIMEOUT_SECONDS", 60),
		},
		TTS: TTSConfig{
			BaseURL: envOr("TTS_BASE_URL", "https://api.openai.com"),
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:   envOr("TTS_MODEL", "tts-1"),
			Format:  envOr("TTS_FORMAT", "mp3"),
			Timeout: envInt("TTS_TIMEOUT_SECONDS", 60),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_EPISODE_TOPIC", "episode.published"),
		},
		Redis: RedisConfig{
			Addr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		},
		Podcast: PodcastMetadata{
			BaseURL:     strings.TrimSpace(os.Getenv("PODCAST_BASE_URL")),
			Title:       envOr("PODCAST_TITLE", "Daily News Podcast"),
			Description: envOr("PODCAST_DESCRIPTION", "An automated daily news briefing."),
			Author:      envOr("PODCAST_AUTHOR", "Daily News Podcast"),
			Email:       strings.TrimSpace(os.Getenv("PODCAST_EMAIL")),
			Language:    envOr("PODCAST_LANGUAGE", "en-us"),
			Category:    envOr("PODCAST_CATEGORY", "News"),
		},

		Timezone:            envOr("TIMEZONE", "America/New_York"),
		RumorFilter:         envBool("RUMOR_FILTER", true),
		MinContentLength:    envInt("MIN_CONTENT_LENGTH", 100),
		MaxStoriesPerDomain: envInt("MAX_STORIES_PER_DOMAIN", 2),
		ForceOverwrite:      envBool("FORCE_OVERWRITE", false),
		WindowHours:         envInt("WINDOW_HOURS", 36),
		TargetDurationSec:   envInt("TARGET_DURATION_SECONDS", 900),

		DashboardUser:  os.Getenv("DASHBOARD_USER"),
		DashboardPass:  os.Getenv("DASHBOARD_PASS"),
		DashboardToken: os.Getenv("DASHBOARD_TOKEN"),
		ExternalAPIKey: os.Getenv("EXTERNAL_API_KEY"),
		CronSecret:     os.Getenv("CRON_SECRET"),

		ConfigPath: envOr("CONFIG_OBJECT_PATH", "config/config.json"),
	}

	if cfg.S3.Endpoint != "" {
		// Custom endpoints (MinIO, R2, ...) almost always need path-style
		// addressing; the explicit flag still wins if set to false on purpose.
		if os.Getenv("S3_USE_PATH_STYLE") == "" {
			cfg.S3.UsePathStyle = true
		}
	}

	return cfg
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
