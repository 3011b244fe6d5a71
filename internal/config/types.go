// Package config defines the run-time configuration surface for the podcast
// pipeline: environment-driven process settings (Load) and the user-editable
// dashboard record persisted through the object store (Store).
package config

// S3Config parameterizes the object-store backend.
type S3Config struct {
	Endpoint              string
	Bucket                string
	AccessKey             string
	SecretKey             string
	Region                string
	Prefix                string
	UsePathStyle          bool
	TLSInsecureSkipVerify bool
	SSE                   S3SSEConfig
}

// S3SSEConfig configures server-side encryption. Mode is one of "", "sse-s3",
// "sse-kms".
type S3SSEConfig struct {
	Mode     string
	KMSKeyID string
}

// EmbeddingConfig parameterizes the OpenAI-compatible embeddings endpoint.
// Headers, when set, are applied verbatim and take precedence over the
// legacy APIHeader/APIKey pair for any header name they also specify.
type EmbeddingConfig struct {
	BaseURL   string
	Path      string
	APIKey    string
	APIHeader string
	Headers   map[string]string
	Model     string
	Timeout   int // seconds
}

// LLMConfig parameterizes a single LLM provider used for one or more
// pipeline stages.
type LLMConfig struct {
	Provider string // "openai", "anthropic", "google"
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  int // seconds
}

// TTSConfig parameterizes the OpenAI-compatible /v1/audio/speech endpoint.
type TTSConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Format  string // e.g. "mp3"
	Timeout int     // seconds
}

// PodcastMetadata holds the static RSS channel metadata.
type PodcastMetadata struct {
	BaseURL     string
	Title       string
	Description string
	Author      string
	Email       string
	Language    string
	Category    string
}

// KafkaConfig parameterizes the optional best-effort episode-published event
// publisher (C15). Empty Brokers disables the publisher entirely.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig parameterizes the optional cross-process run lock that
// supplements the date-level idempotency check.
type RedisConfig struct {
	Addr string
}

// Config is the fully resolved process configuration: environment-derived
// settings plus the stage clients they parameterize. It is loaded once at
// process start by Load and passed down to the orchestrator.
type Config struct {
	StorageBackend string // "s3" (only backend implemented; "memory" for tests)
	S3             S3Config
	Embedding      EmbeddingConfig
	LLM            LLMConfig
	TTS            TTSConfig
	Kafka          KafkaConfig
	Redis          RedisConfig
	Podcast        PodcastMetadata

	Timezone           string
	RumorFilter        bool
	MinContentLength   int
	MaxStoriesPerDomain int
	ForceOverwrite     bool
	WindowHours        int
	TargetDurationSec  int

	DashboardUser  string
	DashboardPass  string
	DashboardToken string
	ExternalAPIKey string
	CronSecret     string

	ConfigPath string // object-store key for the dashboard record, default "config/config.json"
}
