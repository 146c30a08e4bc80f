// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                 `mapstructure:"app"`
	Target        TargetConfig              `mapstructure:"target"`
	Ledger        LedgerConfig              `mapstructure:"ledger"`
	Metadata      MetadataConfig            `mapstructure:"metadata"`
	Sessions      SessionsConfig            `mapstructure:"sessions"`
	Scenarios     map[string]ScenarioConfig `mapstructure:"scenarios"`
	Database      DatabaseConfig            `mapstructure:"database"`
	Evidence      EvidenceConfig            `mapstructure:"evidence"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
	Observability ObservabilityConfig       `mapstructure:"observability"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Simulator     SimulatorConfig           `mapstructure:"simulator"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// TargetConfig describes how probes reach the system under test.
type TargetConfig struct {
	Mode    string `mapstructure:"mode"`     // "http" or "inprocess"
	BaseURL string `mapstructure:"base_url"` // required for http mode
	Timeout int    `mapstructure:"timeout"`  // milliseconds
}

// LedgerConfig locates the append-only evidence ledgers.
type LedgerConfig struct {
	Dir string `mapstructure:"dir"`
}

// MetadataConfig locates the audit metadata registry files.
type MetadataConfig struct {
	Dir string `mapstructure:"dir"`
}

// SessionsConfig selects the session store backend for replay detection.
type SessionsConfig struct {
	Backend   string `mapstructure:"backend"` // "memory" or "redis"
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // milliseconds, 0 means no expiry
}

// ScenarioConfig holds per-scenario toggles.
type ScenarioConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Runs    int  `mapstructure:"runs"` // used by scenarios that repeat probes
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
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
	Enabled    bool     `mapstructure:"enabled"`
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

// EvidenceConfig holds execution-context fields stamped into every record.
type EvidenceConfig struct {
	ExecutedBy  string `mapstructure:"executed_by"`
	Environment string `mapstructure:"environment"`
	SystemID    string `mapstructure:"system_id"` // target system in the metadata registry
	StackID     string `mapstructure:"stack_id"`  // configuration stack in the metadata registry
	IndexName   string `mapstructure:"index_name"` // Elasticsearch index for records
}

// NotificationConfig holds settings for violation alerting.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"ses"`
}

// ObservabilityConfig holds metrics endpoint settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	ListenAddress  string `mapstructure:"listen_address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SimulatorConfig holds settings for the built-in screening service.
type SimulatorConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	CurrentYear   int    `mapstructure:"current_year"` // 0 means wall clock
}
