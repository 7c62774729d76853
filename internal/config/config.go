// Package config loads application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable named in its mapstructure tag.
type Config struct {
	Env   string `mapstructure:"APP_ENV"`
	Port  string `mapstructure:"APP_PORT"`
	Store string `mapstructure:"STORE"` // mysql | memory

	DBUser    string `mapstructure:"DB_USER"`
	DBPass    string `mapstructure:"DB_PASS"`
	DBHost    string `mapstructure:"DB_HOST"`
	DBPort    string `mapstructure:"DB_PORT"`
	DBName    string `mapstructure:"DB_NAME"`
	DBMigrate bool   `mapstructure:"DB_MIGRATE"`

	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AccessTTLMin   int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTTLDays int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	BcryptCost     int    `mapstructure:"BCRYPT_COST"`

	// Seeded on startup when both are set and the account does not exist.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	// Business calendar
	UTCOffsetMin       int           `mapstructure:"BUSINESS_UTC_OFFSET_MIN"`
	SlotGranularityMin int           `mapstructure:"SLOT_GRANULARITY_MIN"`
	BookingHorizonDays int           `mapstructure:"BOOKING_HORIZON_DAYS"`
	MinBookingHours    int           `mapstructure:"MIN_BOOKING_HOURS"`
	SweepGrace         time.Duration `mapstructure:"SWEEP_GRACE"`
	SweepSchedule      string        `mapstructure:"SWEEP_SCHEDULE"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	RabbitURL       string `mapstructure:"RABBITMQ_URL"`
	ConsumerEnabled bool   `mapstructure:"QUEUE_CONSUMER_ENABLED"`
	BookingLogDir   string `mapstructure:"BOOKING_LOG_DIR"`

	Redis     RedisConfig     `mapstructure:",squash"`
	Cache     CacheConfig     `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
}

var defaults = map[string]any{
	"APP_ENV":                 "development",
	"APP_PORT":                "8080",
	"STORE":                   "mysql",
	"DB_USER":                 "",
	"DB_PASS":                 "",
	"DB_HOST":                 "127.0.0.1",
	"DB_PORT":                 "3306",
	"DB_NAME":                 "coworking",
	"DB_MIGRATE":              false,
	"JWT_SECRET":              "",
	"ACCESS_TOKEN_TTL_MIN":    15,
	"REFRESH_TOKEN_TTL_DAYS":  7,
	"BCRYPT_COST":             10,
	"ADMIN_EMAIL":             "",
	"ADMIN_PASSWORD":          "",
	"BUSINESS_UTC_OFFSET_MIN": 420,
	"SLOT_GRANULARITY_MIN":    15,
	"BOOKING_HORIZON_DAYS":    30,
	"MIN_BOOKING_HOURS":       1,
	"SWEEP_GRACE":             "0s",
	"SWEEP_SCHEDULE":          "@every 5m",
	"REQUEST_TIMEOUT":         "5s",
	"RABBITMQ_URL":            "",
	"QUEUE_CONSUMER_ENABLED":  false,
	"BOOKING_LOG_DIR":         "logs",
}

// Load reads an optional .env file, then the environment, and validates
// the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	setRedisDefaults(v)
	setCacheDefaults(v)
	setRateLimitDefaults(v)
	return v
}

// FromViper unmarshals and validates configuration from v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Cache.Methods = parseMethods(v.GetString("CACHE_METHODS"))
	cfg.RateLimit.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing or out-of-range settings.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_SECRET"))
	}
	switch c.Store {
	case "mysql":
		if c.DBUser == "" || c.DBHost == "" || c.DBPort == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_USER, DB_HOST, DB_PORT and DB_NAME are required when STORE=mysql"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("invalid STORE %q", c.Store))
	}
	if c.SlotGranularityMin <= 0 || 60%c.SlotGranularityMin != 0 {
		errs = append(errs, fmt.Errorf("SLOT_GRANULARITY_MIN must divide 60, got %d", c.SlotGranularityMin))
	}
	if c.MinBookingHours < 1 {
		errs = append(errs, errors.New("MIN_BOOKING_HOURS must be at least 1"))
	}
	if c.UTCOffsetMin < -14*60 || c.UTCOffsetMin > 14*60 {
		errs = append(errs, fmt.Errorf("BUSINESS_UTC_OFFSET_MIN out of range: %d", c.UTCOffsetMin))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// SlotStep is the grid granularity as a duration.
func (c Config) SlotStep() time.Duration { return time.Duration(c.SlotGranularityMin) * time.Minute }
