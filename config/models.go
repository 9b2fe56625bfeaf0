package config

// Config holds the configuration of the application
// Use config.LoadConfig to create a new instance
type Config struct {
	Store      StoreConfig      `mapstructure:"store"      json:"store"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings" json:"embeddings"`
	Reduction  ReductionConfig  `mapstructure:"reduction"  json:"reduction"`
	Search     SearchConfig     `mapstructure:"search"     json:"search"`
	Server     ServerConfig     `mapstructure:"server"     json:"server"`
	Log        LogConfig        `mapstructure:"log"        json:"log"`
	Auth       AuthConfig       `mapstructure:"auth"       json:"auth"`
	Tracing    TracingConfig    `mapstructure:"tracing"    json:"tracing"`
}

// StoreConfig selects the corpus store. Type is one of "postgres" or "sqlite".
type StoreConfig struct {
	Type     string         `mapstructure:"type"     json:"type"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"   json:"sqlite"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" json:"dsn"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// EmbeddingsConfig configures the text embedding provider and the batch job.
type EmbeddingsConfig struct {
	// Service is one of "vertexai", "openai" or "local"
	Service    string `mapstructure:"service"    json:"service"`
	Model      string `mapstructure:"model"      json:"model"`
	Dimensions int    `mapstructure:"dimensions" json:"dimensions"`
	// VertexAI
	Project  string `mapstructure:"project"  json:"project"`
	Location string `mapstructure:"location" json:"location"`
	// OpenAI. The API key is loaded from ENV, not the config file.
	OpenAIAPIKey   string `mapstructure:"openai_api_key"  json:"-"`
	OpenAIEndpoint string `mapstructure:"openai_endpoint" json:"openai_endpoint"`
	// Local NLP server
	ServerURL string `mapstructure:"server_url" json:"server_url"`

	MaxTextChars    int `mapstructure:"max_text_chars"    json:"max_text_chars"`
	BatchSize       int `mapstructure:"batch_size"        json:"batch_size"`
	BatchPauseMs    int `mapstructure:"batch_pause_ms"    json:"batch_pause_ms"`
	InsertBatchSize int `mapstructure:"insert_batch_size" json:"insert_batch_size"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"   json:"timeout_seconds"`
	// RetryMax defaults to 0. Provider failures are surfaced, not retried.
	RetryMax int `mapstructure:"retry_max" json:"retry_max"`
}

type ReductionConfig struct {
	ModelPath string `mapstructure:"model_path" json:"model_path"`
}

type SearchConfig struct {
	DefaultTopK int `mapstructure:"default_top_k" json:"default_top_k"`
	MaxTopK     int `mapstructure:"max_top_k"     json:"max_top_k"`
}

type ServerConfig struct {
	Host           string  `mapstructure:"host"             json:"host"`
	Port           int     `mapstructure:"port"             json:"port"`
	MaxRequestSize int64   `mapstructure:"max_request_size" json:"max_request_size"`
	RateLimit      float64 `mapstructure:"rate_limit"       json:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"       json:"rate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  json:"level"`
	Format string `mapstructure:"format" json:"format"` // text or json
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"   json:"-"`
	Required bool   `mapstructure:"required" json:"required"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"      json:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     json:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"     json:"insecure"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
