package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr         string `mapstructure:"addr"`
		AllowOrigins string `mapstructure:"allow_origins"`
	} `mapstructure:"server"`
	Database struct {
		Path           string `mapstructure:"path"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"database"`
	Auth struct {
		JWTSecret       string `mapstructure:"jwt_secret"`
		TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
		BcryptCost      int    `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`
	Redis struct {
		Addr       string `mapstructure:"addr"`
		Password   string `mapstructure:"password"`
		DB         int    `mapstructure:"db"`
		TTLSeconds int    `mapstructure:"ttl_seconds"`
	} `mapstructure:"redis"`
	Storage struct {
		Bucket        string `mapstructure:"bucket"`
		KeyPrefix     string `mapstructure:"key_prefix"`
		Region        string `mapstructure:"region"`
		Endpoint      string `mapstructure:"endpoint"`
		URLTTLMinutes int    `mapstructure:"url_ttl_minutes"`
	} `mapstructure:"storage"`
	AWS struct {
		Profile string `mapstructure:"profile"`
	} `mapstructure:"aws"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// StoreTimeout bounds every store call made on behalf of a request.
func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.Database.TimeoutSeconds) * time.Second
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

func (c Config) ImageURLTTL() time.Duration {
	return time.Duration(c.Storage.URLTTLMinutes) * time.Minute
}

// AllowOrigins splits server.allow_origins on commas.
func (c Config) AllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// optional file; variables already set in the environment win
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("SOCIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:1920")
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("database.path", "data/social.db")
	v.SetDefault("database.timeout_seconds", 5)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 300)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_seconds", 300)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.key_prefix", "profile-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.url_ttl_minutes", 15)
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.TimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("database.timeout_seconds must be positive")
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("auth.token_ttl_minutes must be positive")
	}

	return cfg, nil
}
