// internal/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Storage  StorageConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Backend is "postgres" or "memory".
	Backend  string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MaxConcurrentTx bounds transactions in flight on the pool.
	MaxConcurrentTx int64
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	ConfigTTLSeconds  int
	SummaryTTLSeconds int
}

type EngineConfig struct {
	WorkerCount    int
	SpikeDampening float64
	// FillRateSteps are the fill rate estimates for penetration ≤70, ≤85, ≤95 and above.
	FillRateSteps []float64
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("DB_BACKEND", "postgres")
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "ddmrp")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_CONFIG_TTL_SECONDS", 300)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
		viper.SetDefault("ENGINE_WORKER_COUNT", 8)
		viper.SetDefault("ENGINE_SPIKE_DAMPENING", 0.5)
		viper.SetDefault("ENGINE_FILL_RATE_STEPS", []float64{99, 95, 90, 80})
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
		viper.SetDefault("STORAGE_BUCKET", "ddmrp-reports")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", false)
		viper.SetDefault("STORAGE_PREFIX", "buffer-status")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Backend:         viper.GetString("DB_BACKEND"),
				URL:             viper.GetString("DATABASE_URL"),
				Host:            viper.GetString("DB_HOST"),
				Port:            viper.GetString("DB_PORT"),
				User:            viper.GetString("DB_USER"),
				Password:        viper.GetString("DB_PASSWORD"),
				DBName:          viper.GetString("DB_NAME"),
				SSLMode:         viper.GetString("DB_SSLMODE"),
				MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				ConfigTTLSeconds:  viper.GetInt("CACHE_CONFIG_TTL_SECONDS"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				WorkerCount:    viper.GetInt("ENGINE_WORKER_COUNT"),
				SpikeDampening: viper.GetFloat64("ENGINE_SPIKE_DAMPENING"),
				FillRateSteps:  floatSlice(viper.Get("ENGINE_FILL_RATE_STEPS")),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}

// Parameters converts the engine section into engine parameters. Missing or
// malformed values fall back to the engine defaults.
func (c EngineConfig) Parameters() engine.Parameters {
	params := engine.DefaultParameters()
	if c.SpikeDampening > 0 && c.SpikeDampening <= 1 {
		params.SpikeDampening = c.SpikeDampening
	}
	if len(c.FillRateSteps) == len(params.FillRate.Steps)+1 {
		for i := range params.FillRate.Steps {
			params.FillRate.Steps[i].Value = c.FillRateSteps[i]
		}
		params.FillRate.Otherwise = c.FillRateSteps[len(c.FillRateSteps)-1]
	}
	return params
}

func floatSlice(v interface{}) []float64 {
	switch t := v.(type) {
	case []float64:
		return t
	case []interface{}:
		out := make([]float64, 0, len(t))
		for _, x := range t {
			f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(x)), 64)
			if err != nil {
				return nil
			}
			out = append(out, f)
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		out := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}
