// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Indexer, Search, Rerank).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Rerank   RerankConfig   `yaml:"rerank"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitRPS is the per-client request rate; zero disables limiting.
	RateLimitRPS    float64       `yaml:"rateLimitRPS"`
	RateLimitBurst  int           `yaml:"rateLimitBurst"`
	// CORSOrigins lists browser origins allowed to call the API; empty
	// disables CORS headers.
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls the indexing engine's memory threshold, flush
// interval, and field analysis.
type IndexerConfig struct {
	DataDir        string        `yaml:"dataDir"`
	SegmentMaxSize int64         `yaml:"segmentMaxSize"`
	FlushInterval  time.Duration `yaml:"flushInterval"`
	KeywordFields  []string      `yaml:"keywordFields"`
}

// SearchConfig controls query execution limits and the default field and
// similarity used when a request does not name one.
type SearchConfig struct {
	MaxResults   int           `yaml:"maxResults"`
	DefaultLimit int           `yaml:"defaultLimit"`
	DefaultField string        `yaml:"defaultField"`
	Similarity   string        `yaml:"similarity"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RerankConfig holds the default reranking strategy and its parameters.
// Request parameters override these per call.
type RerankConfig struct {
	Strategy     string        `yaml:"strategy"`
	Cutoff       int           `yaml:"cutoff"`
	Timeout      time.Duration `yaml:"timeout"`
	Workers      int           `yaml:"workers"`
	RM3          RM3Config     `yaml:"rm3"`
	Axiom        AxiomConfig   `yaml:"axiom"`
	SDM          SDMConfig     `yaml:"sdm"`
	VectorFilter FilterConfig  `yaml:"vectorFilter"`
}

// RM3Config holds RM3 relevance feedback defaults.
type RM3Config struct {
	FbDocs              int     `yaml:"fbDocs"`
	FbTerms             int     `yaml:"fbTerms"`
	OriginalQueryWeight float64 `yaml:"originalQueryWeight"`
	Restrict            bool    `yaml:"restrict"`
}

// AxiomConfig holds axiomatic reranking defaults.
type AxiomConfig struct {
	R        int     `yaml:"r"`
	N        int     `yaml:"n"`
	K        int     `yaml:"k"`
	M        int     `yaml:"m"`
	Beta     float64 `yaml:"beta"`
	Seed     int64   `yaml:"seed"`
	Restrict bool    `yaml:"restrict"`
}

// SDMConfig holds sequential dependence model weights.
type SDMConfig struct {
	TermWeight            float64 `yaml:"termWeight"`
	OrderedWindowWeight   float64 `yaml:"orderedWindowWeight"`
	UnorderedWindowWeight float64 `yaml:"unorderedWindowWeight"`
}

// FilterConfig bounds the terms kept in feedback document vectors.
type FilterConfig struct {
	MinTermLength int     `yaml:"minTermLength"`
	MaxTermLength int     `yaml:"maxTermLength"`
	MaxDocFreq    float64 `yaml:"maxDocFreq"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls which request span trees are logged.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Rerank.Strategy {
	case "rm3", "ax", "id":
	default:
		return fmt.Errorf("invalid rerank strategy %q", c.Rerank.Strategy)
	}
	switch c.Search.Similarity {
	case "bm", "ql":
	default:
		return fmt.Errorf("invalid similarity %q", c.Search.Similarity)
	}
	if c.Rerank.Cutoff <= 0 {
		return fmt.Errorf("rerank cutoff must be positive, got %d", c.Rerank.Cutoff)
	}
	if w := c.Rerank.RM3.OriginalQueryWeight; w < 0 || w > 1 {
		return fmt.Errorf("rm3 original query weight must be in [0,1], got %g", w)
	}
	if r := c.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("tracing sample rate must be in [0,1], got %g", r)
	}
	if c.Search.DefaultField == "" {
		return fmt.Errorf("search default field must not be empty")
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "reranker",
			User:            "reranker",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       true,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "reranker-group",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				AnalyticsEvents: "rerank-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:        "data/index",
			SegmentMaxSize: 64 << 20,
			FlushInterval:  30 * time.Second,
			KeywordFields:  []string{"id"},
		},
		Search: SearchConfig{
			MaxResults:   1000,
			DefaultLimit: 10,
			DefaultField: "text",
			Similarity:   "bm",
			Timeout:      5 * time.Second,
		},
		Rerank: RerankConfig{
			Strategy: "rm3",
			Cutoff:   50,
			Timeout:  10 * time.Second,
			Workers:  8,
			RM3: RM3Config{
				FbDocs:              10,
				FbTerms:             10,
				OriginalQueryWeight: 0.5,
			},
			Axiom: AxiomConfig{
				R:    20,
				N:    20,
				K:    1000,
				M:    30,
				Beta: 0.4,
			},
			SDM: SDMConfig{
				TermWeight:            0.85,
				OrderedWindowWeight:   0.1,
				UnorderedWindowWeight: 0.05,
			},
			VectorFilter: FilterConfig{
				MinTermLength: 2,
				MaxTermLength: 20,
				MaxDocFreq:    0.1,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    true,
			SampleRate: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SP_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("SP_SEARCH_DEFAULT_FIELD"); v != "" {
		cfg.Search.DefaultField = v
	}
	if v := os.Getenv("SP_RERANK_STRATEGY"); v != "" {
		cfg.Rerank.Strategy = v
	}
	if v := os.Getenv("SP_RERANK_CUTOFF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rerank.Cutoff = n
		}
	}
	if v := os.Getenv("SP_RERANK_AXIOM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Rerank.Axiom.Seed = seed
		}
	}
}
