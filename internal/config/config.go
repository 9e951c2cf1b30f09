package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN lib/pq 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT 配置（用于向阀门下发温度）
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // 最终主题：<prefix>/<relay id>/setpoint
}

// PriceConfig 电价服务配置
type PriceConfig struct {
	URL       string // 为空时使用固定电价（本地联调）
	Timeout   time.Duration
	Retries   int
	CacheTTL  time.Duration
	FixedRate float64
}

// Config chai-api 配置
type Config struct {
	HTTP struct {
		Addr           string
		RequestTimeout time.Duration
		CORSOrigins    []string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Auth struct {
		Bearer string // 共享密钥，空表示不校验
	}
	Timezone    string
	Location    *time.Location
	Price       PriceConfig
	MQTT        MQTTConfig
	AlertStream string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.RequestTimeout = parseDuration(getEnv("HTTP_REQUEST_TIMEOUT", "10s"), 10*time.Second)
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	// local dev falls back to the in-memory store when the database is unreachable
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "chai")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.Bearer = getEnv("AUTH_BEARER", "")

	cfg.Timezone = getEnv("TIMEZONE", "Europe/London")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	cfg.Price.URL = getEnv("PRICE_API_URL", "")
	cfg.Price.Timeout = parseDuration(getEnv("PRICE_API_TIMEOUT", "5s"), 5*time.Second)
	cfg.Price.Retries = parseInt(getEnv("PRICE_API_RETRIES", "2"), 2)
	cfg.Price.CacheTTL = parseDuration(getEnv("PRICE_CACHE_TTL", "5m"), 5*time.Minute)
	cfg.Price.FixedRate = parseFloat(getEnv("PRICE_FIXED_RATE", "15"), 15)

	// MQTT 默认禁用，禁用时只记录下发日志
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "chai-api")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "chai/relay")

	cfg.AlertStream = getEnv("ALERT_STREAM", "chai:alerts")

	if cfg.HTTP.RequestTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_REQUEST_TIMEOUT must be positive")
	}
	if cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("MQTT_QOS must be 0, 1 or 2")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
