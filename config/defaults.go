package config

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Store: StoreConfig{
		Type: "postgres",
		SQLite: SQLiteConfig{
			Path: "lifeembedding.db",
		},
	},
	Embeddings: EmbeddingsConfig{
		Service:         "vertexai",
		Model:           "text-embedding-004",
		Dimensions:      768,
		Location:        "us-central1",
		MaxTextChars:    10000,
		BatchSize:       5,
		BatchPauseMs:    500,
		InsertBatchSize: 100,
		TimeoutSeconds:  60,
	},
	Reduction: ReductionConfig{
		ModelPath: "models/reduction.json",
	},
	Search: SearchConfig{
		DefaultTopK: 10,
		MaxTopK:     100,
	},
	Server: ServerConfig{
		Port:           8080,
		MaxRequestSize: 5 << 20,
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
	Tracing: TracingConfig{
		ServiceName: "lifeembedding",
	},
}

// DefaultConfig returns a copy of the default configuration.
func DefaultConfig() Config {
	return defaultConfig
}
