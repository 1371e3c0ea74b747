package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Tracking   TrackingConfig
	Dispatch   DispatchConfig
	Cron       CronConfig
	GeoIP      GeoIPConfig
	Gophish    GophishConfig
	Encryption EncryptionConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// TrackingConfig holds the public base URLs baked into outgoing emails.
// TrackerBaseURL must be reachable by recipients; the landing base serves
// hosted pages.
type TrackingConfig struct {
	TrackerBaseURL string `mapstructure:"tracker_base_url"`
	ClickURL       string `mapstructure:"click_url"`
	LandingBaseURL string `mapstructure:"landing_base_url"`
	ReportJSURL    string `mapstructure:"report_js_url"`
}

type DispatchConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	Interval    time.Duration `mapstructure:"interval"`
	ClaimStale  time.Duration `mapstructure:"claim_stale"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// CronConfig guards the scheduler endpoints. Each key must match the
// security_key query parameter the external scheduler sends.
type CronConfig struct {
	EmailSendKey  string `mapstructure:"email_send_key"`
	CampaignKey   string `mapstructure:"campaign_key"`
	AssignmentKey string `mapstructure:"assignment_key"`
}

type GeoIPConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type GophishConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type EncryptionConfig struct {
	Key string `mapstructure:"key"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("dispatch.batch_size", 12)
	viper.SetDefault("dispatch.interval", time.Minute)
	viper.SetDefault("dispatch.claim_stale", 10*time.Minute)
	viper.SetDefault("dispatch.send_timeout", 30*time.Second)
	viper.SetDefault("geoip.timeout", 3*time.Second)
	viper.SetDefault("geoip.cache_ttl", 6*time.Hour)
}
