package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	PayTR    PayTRConfig
}

var (
	configInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URI builds the Postgres connection string from the individual fields.
func (d DatabaseConfig) URI() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether event publishing is configured. An empty broker
// list disables the Kafka producer entirely.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

// PayTRConfig holds the pre-shared credentials used to authenticate
// provider webhooks. MerchantKey signs the digest, MerchantSalt is mixed
// into the digested string.
type PayTRConfig struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string
}

func LoadConfig() (*Config, error) {
	// Viper setup
	once.Do(func() {
		// Best effort; real env vars win over .env values
		_ = godotenv.Load()

		viper.SetDefault("ALO17_HOST", "")
		viper.SetDefault("ALO17_PORT", "8080")
		viper.SetDefault("ALO17_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("ALO17_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("ALO17_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("ALO17_JWT_SECRET", "secret")
		viper.SetDefault("ALO17_JWT_EXPIRE", "24h")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("KAFKA_BROKERS", []string{})
		viper.SetDefault("KAFKA_TOPIC", "alo17-events")
		viper.SetDefault("POSTGRES_USER", "postgres")
		viper.SetDefault("POSTGRES_PASSWORD", "password")
		viper.SetDefault("POSTGRES_HOST", "localhost")
		viper.SetDefault("POSTGRES_PORT", "5432")
		viper.SetDefault("POSTGRES_DB", "alo17")
		viper.SetDefault("POSTGRES_SSLMODE", "disable")
		viper.SetDefault("PAYTR_MERCHANT_ID", "")
		viper.SetDefault("PAYTR_MERCHANT_KEY", "")
		viper.SetDefault("PAYTR_MERCHANT_SALT", "")
		viper.AutomaticEnv()

		configInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("ALO17_HOST"),
				Port:         viper.GetString("ALO17_PORT"),
				ReadTimeout:  viper.GetDuration("ALO17_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("ALO17_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("ALO17_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("POSTGRES_HOST"),
				Port:     viper.GetString("POSTGRES_PORT"),
				User:     viper.GetString("POSTGRES_USER"),
				Password: viper.GetString("POSTGRES_PASSWORD"),
				DBName:   viper.GetString("POSTGRES_DB"),
				SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			},
			Redis: RedisConfig{
				URI:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			Kafka: KafkaConfig{
				Brokers: viper.GetStringSlice("KAFKA_BROKERS"),
				Topic:   viper.GetString("KAFKA_TOPIC"),
			},
			JWT: JWTConfig{
				Secret:         viper.GetString("ALO17_JWT_SECRET"),
				ExpirationTime: viper.GetDuration("ALO17_JWT_EXPIRE"),
			},
			PayTR: PayTRConfig{
				MerchantID:   viper.GetString("PAYTR_MERCHANT_ID"),
				MerchantKey:  viper.GetString("PAYTR_MERCHANT_KEY"),
				MerchantSalt: viper.GetString("PAYTR_MERCHANT_SALT"),
			},
		}
	})

	return configInstance, nil
}
