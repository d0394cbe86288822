package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthGracePeriod time.Duration `mapstructure:"AUTH_GRACE_PERIOD"`
	CommandTimeout  time.Duration `mapstructure:"COMMAND_TIMEOUT"`
	SendBuffer      int           `mapstructure:"SEND_BUFFER"`
	NotifRetention  time.Duration `mapstructure:"NOTIF_RETENTION"`
	NotifSweep      time.Duration `mapstructure:"NOTIF_SWEEP"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8100")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AUTH_GRACE_PERIOD", "10s")
	v.SetDefault("COMMAND_TIMEOUT", "5s")
	v.SetDefault("SEND_BUFFER", 256)
	v.SetDefault("NOTIF_RETENTION", "168h")
	v.SetDefault("NOTIF_SWEEP", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_GRACE_PERIOD")
	v.BindEnv("COMMAND_TIMEOUT")
	v.BindEnv("SEND_BUFFER")
	v.BindEnv("NOTIF_RETENTION")
	v.BindEnv("NOTIF_SWEEP")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be set so that session tokens are actually verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q; refusing to start without token verification", c.Env)
	}
	if c.AuthGracePeriod <= 0 {
		return fmt.Errorf("AUTH_GRACE_PERIOD must be positive, got %s", c.AuthGracePeriod)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("COMMAND_TIMEOUT must be positive, got %s", c.CommandTimeout)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.SendBuffer)
	}
	return nil
}
