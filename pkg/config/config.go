package config

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultPort         = ":3001"
	DefaultTickInterval = 5 * time.Second

	TickModePerConnection = "per_connection"
	TickModeGlobal        = "global"

	SeedDefault  = "default"
	SeedExtended = "extended"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Processor ProcessorConfig `mapstructure:"processor"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type GatewayConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	TickMode     string        `mapstructure:"tick_mode"`
	Seed         string        `mapstructure:"seed"`
	CORSOrigin   string        `mapstructure:"cors_origin"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type ProcessorConfig struct {
	NumWorkers  int           `mapstructure:"num_workers"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	v.SetDefault("app.port", DefaultPort)
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)

	v.SetDefault("gateway.tick_interval", DefaultTickInterval)
	v.SetDefault("gateway.tick_mode", TickModeGlobal)
	v.SetDefault("gateway.seed", SeedDefault)
	v.SetDefault("gateway.cors_origin", "*")
	v.SetDefault("gateway.send_buffer", 64)
	v.SetDefault("gateway.write_wait", 5*time.Second)
	v.SetDefault("gateway.pong_wait", 60*time.Second)
	v.SetDefault("gateway.ping_period", 50*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "stock_ticks")
	v.SetDefault("kafka.group_id", "stock-processor-group")

	v.SetDefault("processor.num_workers", 4)
	v.SetDefault("processor.snapshot_ttl", time.Hour)

	// "app.port" -> "APP_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// PORT is what most hosting platforms inject
	if err := v.BindEnv("app.port", "APP_PORT", "PORT"); err != nil {
		log.Printf("Could not bind env var for key app.port: %v", err)
	}
	bindEnv(v, "app.env")
	bindEnv(v, "logger.level", "logger.development")
	bindEnv(v, "gateway.tick_interval", "gateway.tick_mode", "gateway.seed", "gateway.cors_origin",
		"gateway.send_buffer", "gateway.write_wait", "gateway.pong_wait", "gateway.ping_period")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_id")
	bindEnv(v, "processor.num_workers", "processor.snapshot_ttl")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.normalize()

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty when kafka is enabled")
	}

	return &cfg, nil
}

// normalize replaces unusable values with defaults. None of these are fatal.
func (c *Config) normalize() {
	port, ok := NormalizePort(c.App.Port)
	if !ok {
		log.Printf("Invalid port %q, falling back to %s", c.App.Port, DefaultPort)
	}
	c.App.Port = port

	if c.Gateway.TickInterval <= 0 {
		log.Printf("Invalid tick interval %s, falling back to %s", c.Gateway.TickInterval, DefaultTickInterval)
		c.Gateway.TickInterval = DefaultTickInterval
	}

	switch c.Gateway.TickMode {
	case TickModePerConnection, TickModeGlobal:
	default:
		log.Printf("Unknown tick mode %q, falling back to %s", c.Gateway.TickMode, TickModeGlobal)
		c.Gateway.TickMode = TickModeGlobal
	}

	if c.Gateway.Seed != SeedExtended {
		c.Gateway.Seed = SeedDefault
	}
	if c.Gateway.SendBuffer <= 0 {
		c.Gateway.SendBuffer = 64
	}
	if c.Processor.NumWorkers <= 0 {
		c.Processor.NumWorkers = 1
	}
}

// NormalizePort turns "3001", ":3001" or "host:3001" into a listen address.
// Anything else yields DefaultPort and false.
func NormalizePort(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPort, false
	}

	host, port := "", raw
	if strings.Contains(raw, ":") {
		h, p, err := net.SplitHostPort(raw)
		if err != nil {
			return DefaultPort, false
		}
		host, port = h, p
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return DefaultPort, false
	}
	return net.JoinHostPort(host, strconv.Itoa(n)), true
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
