// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Generation    GenerationConfig        `mapstructure:"generation"`
	SessionBus    SessionBusConfig        `mapstructure:"session_bus"`
	Cache         CacheConfig             `mapstructure:"cache"`
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
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetAddresses returns the configured addresses, falling back to the single URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AuthConfig holds the identity provider used to link guest sessions.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// IntegrationConfig holds settings for CRM and AWS messaging.
type IntegrationConfig struct {
	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		BaseURL   string `mapstructure:"base_url"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"genai"`
}

// NotificationConfig holds recipients for post-commit notification hooks.
type NotificationConfig struct {
	ExpertEmail  string `mapstructure:"expert_email"`
	ShareBaseURL string `mapstructure:"share_base_url"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds, per hook
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// GenerationConfig drives the retrieval, matching and persistence stages.
type GenerationConfig struct {
	RetrievalTimeout int                 `mapstructure:"retrieval_timeout"` // milliseconds
	PersistTimeout   int                 `mapstructure:"persist_timeout"`   // milliseconds
	TopK             int                 `mapstructure:"top_k"`
	MinSimilarity    float64             `mapstructure:"min_similarity"`
	FuzzyThreshold   float64             `mapstructure:"fuzzy_threshold"`
	ValidityDays     int                 `mapstructure:"validity_days"`
	Index            string              `mapstructure:"index"`
	FullRecord       bool                `mapstructure:"full_record"`
	Regions          map[string][]string `mapstructure:"regions"`
}

type SessionBusConfig struct {
	BacklogSize       int `mapstructure:"backlog_size"`
	BacklogTTL        int `mapstructure:"backlog_ttl"`    // milliseconds
	SweepInterval     int `mapstructure:"sweep_interval"` // milliseconds
	SubscriberBuffer  int `mapstructure:"subscriber_buffer"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"` // milliseconds
}

type CacheConfig struct {
	CatalogTTL   int `mapstructure:"catalog_ttl"`   // milliseconds
	RetrievalTTL int `mapstructure:"retrieval_ttl"` // milliseconds
}

// DefaultRegions maps region codes to the localized labels accepted as equivalent.
var DefaultRegions = map[string][]string{
	"seoul":    {"서울", "서울특별시"},
	"busan":    {"부산", "부산광역시"},
	"jeju":     {"제주", "제주도", "제주특별자치도"},
	"incheon":  {"인천", "인천광역시"},
	"gyeonggi": {"경기", "경기도"},
	"gangwon":  {"강원", "강원도"},
	"gyeongju": {"경주", "경주시"},
	"jeonju":   {"전주", "전주시"},
}
