package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ride-pool/internal/domain/cluster"
)

// ErrInvalid marks configuration problems that must stop startup.
var ErrInvalid = errors.New("invalid config")

// Config holds all configuration for the dispatcher process.
type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Ops      OpsConfig
	Dispatch DispatchConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// RabbitMQConfig holds the notification broker settings.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// RedisConfig holds the optional shared retry ledger settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// OpsConfig holds the health/metrics listener settings.
type OpsConfig struct {
	Port int
}

// DispatchConfig holds every knob of the dispatch engine.
type DispatchConfig struct {
	IntervalSeconds      int
	MinClusterSize       int
	ClusterBackend       string // "hdbscan" | "dbscan"
	DBSCANEps            float64
	DBSCANMinSamples     int
	ProximityThresholdM  float64
	MaxDetourKM          float64
	TimeWindowMinutes    int
	RetryCooldownMinutes int
	DefaultPricePerSeat  float64
	DynamicPricing       bool
	RoundDeadlineSeconds int    // 0 derives max(interval*3, 60s)
	RetryBackend         string // "memory" | "redis"
}

// Load reads config/config.yaml (when present), applies defaults, lets
// environment variables override (RIDEPOOL_DATABASE_HOST and friends), and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ridepool")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// a missing file is fine: defaults plus env cover it
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %v", ErrInvalid, err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     v.GetString("rabbitmq.host"),
			Port:     v.GetInt("rabbitmq.port"),
			User:     v.GetString("rabbitmq.user"),
			Password: v.GetString("rabbitmq.password"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Ops: OpsConfig{
			Port: v.GetInt("ops.port"),
		},
		Dispatch: DispatchConfig{
			IntervalSeconds:      v.GetInt("dispatch.interval_seconds"),
			MinClusterSize:       v.GetInt("dispatch.min_cluster_size"),
			ClusterBackend:       v.GetString("dispatch.cluster_backend"),
			DBSCANEps:            v.GetFloat64("dispatch.dbscan_eps"),
			DBSCANMinSamples:     v.GetInt("dispatch.dbscan_min_samples"),
			ProximityThresholdM:  v.GetFloat64("dispatch.proximity_threshold_m"),
			MaxDetourKM:          v.GetFloat64("dispatch.max_detour_km"),
			TimeWindowMinutes:    v.GetInt("dispatch.time_window_minutes"),
			RetryCooldownMinutes: v.GetInt("dispatch.retry_cooldown_minutes"),
			DefaultPricePerSeat:  v.GetFloat64("dispatch.default_price_per_seat"),
			DynamicPricing:       v.GetBool("dispatch.dynamic_pricing"),
			RoundDeadlineSeconds: v.GetInt("dispatch.round_deadline_seconds"),
			RetryBackend:         v.GetString("dispatch.retry_backend"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ridepool")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ridepool")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ops.port", 3100)

	v.SetDefault("dispatch.interval_seconds", 20)
	v.SetDefault("dispatch.min_cluster_size", 3)
	v.SetDefault("dispatch.cluster_backend", cluster.BackendHDBSCAN)
	v.SetDefault("dispatch.dbscan_eps", 0.1)
	v.SetDefault("dispatch.dbscan_min_samples", 3)
	v.SetDefault("dispatch.proximity_threshold_m", 1000.0)
	v.SetDefault("dispatch.max_detour_km", 5.0)
	v.SetDefault("dispatch.time_window_minutes", 15)
	v.SetDefault("dispatch.retry_cooldown_minutes", 60)
	v.SetDefault("dispatch.default_price_per_seat", 25.0)
	v.SetDefault("dispatch.dynamic_pricing", false)
	v.SetDefault("dispatch.round_deadline_seconds", 0)
	v.SetDefault("dispatch.retry_backend", "memory")
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}

	// Redis (only reached when selected as the retry backend)
	if c.Dispatch.RetryBackend == "redis" {
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			problems = append(problems, "redis.port must be in 1..65535")
		}
	}

	// Ops listener
	if c.Ops.Port <= 0 || c.Ops.Port > 65535 {
		problems = append(problems, "ops.port must be in 1..65535")
	}

	// Dispatch knobs
	if c.Dispatch.IntervalSeconds < 1 {
		problems = append(problems, "dispatch.interval_seconds must be >= 1")
	}
	if c.Dispatch.MinClusterSize < 2 {
		problems = append(problems, "dispatch.min_cluster_size must be >= 2")
	}
	switch c.Dispatch.ClusterBackend {
	case cluster.BackendHDBSCAN, cluster.BackendDBSCAN:
	default:
		problems = append(problems, `dispatch.cluster_backend must be "hdbscan" or "dbscan"`)
	}
	if c.Dispatch.DBSCANEps <= 0 {
		problems = append(problems, "dispatch.dbscan_eps must be > 0")
	}
	if c.Dispatch.DBSCANMinSamples < 1 {
		problems = append(problems, "dispatch.dbscan_min_samples must be >= 1")
	}
	if c.Dispatch.ProximityThresholdM <= 0 {
		problems = append(problems, "dispatch.proximity_threshold_m must be > 0")
	}
	if c.Dispatch.MaxDetourKM <= 0 {
		problems = append(problems, "dispatch.max_detour_km must be > 0")
	}
	if c.Dispatch.TimeWindowMinutes < 1 {
		problems = append(problems, "dispatch.time_window_minutes must be >= 1")
	}
	if c.Dispatch.RetryCooldownMinutes < 1 {
		problems = append(problems, "dispatch.retry_cooldown_minutes must be >= 1")
	}
	if c.Dispatch.DefaultPricePerSeat < 0 {
		problems = append(problems, "dispatch.default_price_per_seat cannot be negative")
	}
	if c.Dispatch.RoundDeadlineSeconds < 0 {
		problems = append(problems, "dispatch.round_deadline_seconds cannot be negative")
	}
	switch c.Dispatch.RetryBackend {
	case "memory", "redis":
	default:
		problems = append(problems, `dispatch.retry_backend must be "memory" or "redis"`)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ----- Derived values -----

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis address in host:port form.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL returns the AMQP connection string.
func (c *RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

// Interval is the scheduler period.
func (d *DispatchConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// RetryCooldown is the minimum spacing between retry marks of one request.
func (d *DispatchConfig) RetryCooldown() time.Duration {
	return time.Duration(d.RetryCooldownMinutes) * time.Minute
}

// TimeWindow is the temporal grouping window.
func (d *DispatchConfig) TimeWindow() time.Duration {
	return time.Duration(d.TimeWindowMinutes) * time.Minute
}

// ProximityThresholdKM converts the single meter-denominated knob once;
// everything downstream works in kilometers.
func (d *DispatchConfig) ProximityThresholdKM() float64 {
	return d.ProximityThresholdM / 1000.0
}

// RoundDeadline bounds one dispatch round. Zero config derives the
// default max(interval x 3, 60s).
func (d *DispatchConfig) RoundDeadline() time.Duration {
	if d.RoundDeadlineSeconds > 0 {
		return time.Duration(d.RoundDeadlineSeconds) * time.Second
	}
	deadline := 3 * d.Interval()
	if deadline < time.Minute {
		deadline = time.Minute
	}
	return deadline
}
