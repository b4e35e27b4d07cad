package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all validated environment variables
type Config struct {
	Port                  string        `mapstructure:"PORT"`
	DBURL                 string        `mapstructure:"DATABASE_URL"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	DirectionsBaseURL     string        `mapstructure:"DIRECTIONS_BASE_URL"`
	DirectionsAccessToken string        `mapstructure:"DIRECTIONS_ACCESS_TOKEN"`
	AuthJWTSecret         string        `mapstructure:"AUTH_JWT_SECRET"`
	AdminSecret           string        `mapstructure:"ADMIN_SECRET"`
	APIKey                string        `mapstructure:"API_KEY"`
	FCMServerKey          string        `mapstructure:"FCM_SERVER_KEY"`
	SimulationDuration    time.Duration `mapstructure:"SIMULATION_DURATION"`
	FrameInterval         time.Duration `mapstructure:"FRAME_INTERVAL"`
	BookingCountdown      int           `mapstructure:"BOOKING_COUNTDOWN"`
	DefaultLat            float64       `mapstructure:"DEFAULT_LAT"`
	DefaultLng            float64       `mapstructure:"DEFAULT_LNG"`
	LogRetentionDays      int           `mapstructure:"LOG_RETENTION_DAYS"`
	SupportEmail          string        `mapstructure:"SUPPORT_EMAIL"`
	GinMode               string        `mapstructure:"GIN_MODE"`
}

// Global instance
var Envs Config

var keys = []string{
	"PORT", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD",
	"DIRECTIONS_BASE_URL", "DIRECTIONS_ACCESS_TOKEN", "AUTH_JWT_SECRET",
	"ADMIN_SECRET", "API_KEY", "FCM_SERVER_KEY", "SIMULATION_DURATION",
	"FRAME_INTERVAL", "BOOKING_COUNTDOWN", "DEFAULT_LAT", "DEFAULT_LNG",
	"LOG_RETENTION_DAYS", "SUPPORT_EMAIL", "GIN_MODE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("DIRECTIONS_BASE_URL", "https://api.mapbox.com/directions/v5/mapbox/driving")
	v.SetDefault("SIMULATION_DURATION", "2m")
	v.SetDefault("FRAME_INTERVAL", "50ms")
	v.SetDefault("BOOKING_COUNTDOWN", 5)
	// Gaborone CBD
	v.SetDefault("DEFAULT_LAT", -24.6282)
	v.SetDefault("DEFAULT_LNG", 25.9231)
	v.SetDefault("LOG_RETENTION_DAYS", 30)
	v.SetDefault("SUPPORT_EMAIL", "support@getmore.co.bw")
	v.SetDefault("GIN_MODE", "debug")
}

// Load reads the process environment (already populated from .env by main)
// on top of the defaults.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	// Unmarshal only sees keys viper knows about; bind the ones without defaults.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate ensures the keys the server cannot run without are present.
func (c Config) Validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("environment variable DATABASE_URL is required but missing")
	}
	if c.AuthJWTSecret == "" {
		return fmt.Errorf("environment variable AUTH_JWT_SECRET is required but missing")
	}
	if c.SimulationDuration <= 0 {
		return fmt.Errorf("SIMULATION_DURATION must be positive, got %s", c.SimulationDuration)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be positive, got %s", c.FrameInterval)
	}
	if c.BookingCountdown <= 0 {
		return fmt.Errorf("BOOKING_COUNTDOWN must be positive, got %d", c.BookingCountdown)
	}
	return nil
}

// LoadAndValidate populates Envs or fails.
func LoadAndValidate() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	Envs = cfg
	return nil
}
