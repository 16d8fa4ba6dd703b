package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
	UploadsFolder string
	ResultsFolder string
}

type PredictionConfig struct {
	BaseURL      string
	APIToken     string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	MaxSessions      int
}

type RateLimitConfig struct {
	GenerationLimit  int
	GenerationWindow time.Duration
}

type CleanupConfig struct {
	TemporaryMaxAge time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Prediction       PredictionConfig
	Security         SecurityConfig
	RateLimit        RateLimitConfig
	Cleanup          CleanupConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CHIMERALENS")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate fails at startup on settings the generation pipeline cannot run
// without, instead of surfacing them on the first request.
func (c *AppConfig) validate() error {
	if c.Prediction.APIToken == "" {
		return fmt.Errorf("prediction.apitoken is required")
	}
	if c.Prediction.PollInterval <= 0 {
		return fmt.Errorf("prediction.pollinterval must be positive")
	}
	if c.Prediction.PollTimeout < c.Prediction.PollInterval {
		return fmt.Errorf("prediction.polltimeout must not be shorter than pollinterval")
	}
	if c.Security.JWTAccessSecret == "" || c.Security.JWTRefreshSecret == "" {
		return fmt.Errorf("security jwt secrets are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "90s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucket", "chimeralens-media")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.uploadsfolder", "chimeralens/user_uploads")
	v.SetDefault("storage.resultsfolder", "chimeralens/consultation_results")

	v.SetDefault("prediction.baseurl", "https://api.replicate.com")
	v.SetDefault("prediction.pollinterval", "2s")
	v.SetDefault("prediction.polltimeout", "60s")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("ratelimit.generationlimit", 10)
	v.SetDefault("ratelimit.generationwindow", "1m")

	v.SetDefault("cleanup.temporarymaxage", "24h")
}
