package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PrinterSimulated = "simulated"
	PrinterNetwork   = "network"
)

type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DBHost       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBPort       string
	DBSSLMode    string
	DBURL        string
	DBMaxRetries int

	RedisAddr      string
	AMQPURL        string
	EventsExchange string

	PrinterMode string
	PrinterAddr string

	JWTSecret string
	Location  *time.Location
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		AppPort:        getEnv("APP_PORT", "8080"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBURL:          os.Getenv("DB_URL"),
		DBMaxRetries:   getEnvInt("DB_MAX_RETRIES", 3),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "resto.events"),
		PrinterMode:    strings.ToLower(getEnv("PRINTER_MODE", PrinterSimulated)),
		PrinterAddr:    os.Getenv("PRINTER_ADDR"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Location:       loadLocation(os.Getenv("TZ_LOCATION")),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DBHost == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DBMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("DB_MAX_RETRIES must be at least 1, got %d", c.DBMaxRetries))
	}

	switch c.PrinterMode {
	case PrinterSimulated:
	case PrinterNetwork:
		if c.PrinterAddr == "" {
			errs = append(errs, errors.New("PRINTER_ADDR is required when PRINTER_MODE=network"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PRINTER_MODE %q", c.PrinterMode))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
