// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Engine    EngineConfig            `mapstructure:"engine"`
	Dataset   DatasetConfig           `mapstructure:"dataset"`
	Artifacts ArtifactsConfig         `mapstructure:"artifacts"`
	Sessions  SessionsConfig          `mapstructure:"sessions"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Server    ServerConfig            `mapstructure:"server"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Query Engine ---

// EngineConfig tunes the query pipeline.
type EngineConfig struct {
	TopN                int     `mapstructure:"top_n"`
	FlatThresholdPct    float64 `mapstructure:"flat_threshold_pct"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxDrivers          int     `mapstructure:"max_drivers"`
	FollowUpMaxWords    int     `mapstructure:"follow_up_max_words"`
	// Aliases maps extra phrases to dataset account names, e.g. "ads": "Expense - Marketing".
	Aliases map[string]string `mapstructure:"aliases"`
}

// DatasetConfig selects where ledger records are read from.
type DatasetConfig struct {
	Source  string `mapstructure:"source"` // "postgres" or "file"
	Table   string `mapstructure:"table"`
	Path    string `mapstructure:"path"`
	Version string `mapstructure:"version"`
}

// ArtifactsConfig selects where movement/anomaly/chart artifacts are read from.
type ArtifactsConfig struct {
	Source         string `mapstructure:"source"` // "file", "elasticsearch" or "none"
	Path           string `mapstructure:"path"`
	MovementsIndex string `mapstructure:"movements_index"`
	AnomaliesIndex string `mapstructure:"anomalies_index"`
	ChartsIndex    string `mapstructure:"charts_index"`
	MaxDocuments   int    `mapstructure:"max_documents"`
}

// SessionsConfig bounds the in-memory conversation store.
type SessionsConfig struct {
	IdleTTL         int `mapstructure:"idle_ttl"`         // milliseconds
	CleanupInterval int `mapstructure:"cleanup_interval"` // milliseconds
}

// CacheConfig controls the Redis response cache.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
