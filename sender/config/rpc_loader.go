package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadSenderConfig loads the sender daemon config from the given path, or from
// SENDER_ prefixed env vars when path is nil.
func LoadSenderConfig(configPath *string) (*SenderConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rate_per_minute", 120)
	v.SetDefault("max_concurrent_requests", 100)
	v.SetDefault("service_name", "spectra-sender")
	v.SetDefault("environment", "LOCAL")
	v.SetDefault("gateway_timeout", 10*time.Second)
	v.SetDefault("gateway_max_retries", 2)
	v.SetDefault("gateway_retry_delay", 500*time.Millisecond)
	v.SetDefault("health_check_interval", 30*time.Second)
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("poll_rate", 10.0)
	v.SetDefault("max_poll_failures", 10)
	v.SetDefault("networks_cache_dir", ".sender-cache")
	v.SetDefault("default_deadline_minutes", 7*24*60)
	v.SetDefault("session_retention", time.Hour)
}

func loadEnv(v *viper.Viper) (*SenderConfig, error) {
	// .env is optional, env can come from docker or systemd
	_ = godotenv.Load()
	v.SetEnvPrefix("SENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config SenderConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode",
		"gateway_urls", "gateway_timeout", "gateway_max_retries", "gateway_retry_delay",
		"health_check_interval", "poll_interval", "poll_rate", "max_poll_failures",
		"networks_source", "networks_cache_dir", "default_deadline_minutes",
		"session_retention",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*SenderConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SenderConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func verifyConfig(config *SenderConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if len(config.GatewayURLs) == 0 {
		return fmt.Errorf("gateway_urls is required")
	}
	for _, u := range config.GatewayURLs {
		if u == "" {
			return fmt.Errorf("gateway_urls must not be empty")
		}
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid gateway url %q: %w", u, err)
		}
	}
	if config.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if config.MaxPollFailures <= 0 {
		return fmt.Errorf("max_poll_failures must be positive")
	}

	if config.NetworksSource == "" {
		return fmt.Errorf("networks_source is required")
	}
	if config.DefaultDeadlineMinutes <= 0 {
		return fmt.Errorf("default_deadline_minutes must be positive")
	}
	if config.SessionRetention <= 0 {
		return fmt.Errorf("session_retention must be positive")
	}
	return nil
}
