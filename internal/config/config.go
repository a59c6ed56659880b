package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the engine service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	NATSSubjectPrefix   string
	LeaderboardCacheTTL time.Duration
	AssignmentSeed      int64
	DatabaseAutoMigrate bool
	ShutdownGracePeriod time.Duration
	CORSAllowOrigins    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COURSEWORK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Coursework Engine")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject_prefix", "coursework")
	v.SetDefault("leaderboard.cache_ttl", "10m")
	v.SetDefault("assignment.seed", 42)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("app.shutdown_grace", "5s")
	v.SetDefault("cors.allow_origins", "*")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttl, err := parseDuration(v.GetString("leaderboard.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	grace, err := parseDuration(v.GetString("app.shutdown_grace"), 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown grace period: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		NATSSubjectPrefix:   v.GetString("nats.subject_prefix"),
		LeaderboardCacheTTL: ttl,
		AssignmentSeed:      v.GetInt64("assignment.seed"),
		DatabaseAutoMigrate: v.GetBool("database.auto_migrate"),
		ShutdownGracePeriod: grace,
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
