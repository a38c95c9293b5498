package config

import (
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

type SenderConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`

	// Gateway config, the first url is the primary
	GatewayURLs         []string      `toml:"gateway_urls" mapstructure:"gateway_urls"`
	GatewayTimeout      time.Duration `toml:"gateway_timeout" mapstructure:"gateway_timeout"`
	GatewayMaxRetries   int           `toml:"gateway_max_retries" mapstructure:"gateway_max_retries"`
	GatewayRetryDelay   time.Duration `toml:"gateway_retry_delay" mapstructure:"gateway_retry_delay"`
	HealthCheckInterval time.Duration `toml:"health_check_interval" mapstructure:"health_check_interval"`
	PollInterval        time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	PollRate            float64       `toml:"poll_rate" mapstructure:"poll_rate"`
	MaxPollFailures     int           `toml:"max_poll_failures" mapstructure:"max_poll_failures"`

	// Networks file: a local path or anything go-getter understands
	NetworksSource string `toml:"networks_source" mapstructure:"networks_source"`
	// NetworksCacheDir is where remote networks files are downloaded to
	NetworksCacheDir string `toml:"networks_cache_dir" mapstructure:"networks_cache_dir"`

	// DefaultDeadlineMinutes applies when a send request carries no deadline
	DefaultDeadlineMinutes int `toml:"default_deadline_minutes" mapstructure:"default_deadline_minutes"`
	// SessionRetention is how long finished sessions stay queryable
	SessionRetention time.Duration `toml:"session_retention" mapstructure:"session_retention"`
}

// NetworksConfig is the networks file: the chains the bridge connects and the
// tokens it carries.
type NetworksConfig struct {
	Networks []models.Network `toml:"networks" json:"networks"`
	Tokens   []models.Token   `toml:"tokens" json:"tokens"`
}
