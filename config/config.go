package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverREST     = "rest"
	DriverRedis    = "redis"
)

type Config struct {
	StoreDriver     string
	DBUrl           string
	SupabaseURL     string
	SupabaseKey     string
	RealtimeDriver  string
	RedisAddr       string
	RedisPassword   string
	RedisRelay      bool
	HTTPAddr        string
	RefreshDebounce time.Duration
	RequestTimeout  time.Duration
	Migrate         bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	return Config{
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DBUrl:           databaseURL(),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),
		RealtimeDriver:  strings.ToLower(getEnv("REALTIME_DRIVER", DriverPostgres)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisRelay:      getBool("REDIS_RELAY"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		RefreshDebounce: time.Duration(getInt("REFRESH_DEBOUNCE_MS", 0)) * time.Millisecond,
		RequestTimeout:  time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 5)) * time.Second,
		Migrate:         getBool("MIGRATE"),
	}
}

// Validate reports settings the selected drivers cannot run without.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBUrl == "" {
			errs = append(errs, errors.New("DB_URL or DB_HOST/DB_NAME is required for the postgres store"))
		}
	case DriverREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the rest store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.RealtimeDriver {
	case DriverPostgres:
		if c.DBUrl == "" {
			errs = append(errs, errors.New("DB_URL or DB_HOST/DB_NAME is required for postgres notifications"))
		}
	case DriverRedis:
		if c.RedisRelay {
			errs = append(errs, errors.New("REDIS_RELAY needs REALTIME_DRIVER=postgres as its source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REALTIME_DRIVER %q", c.RealtimeDriver))
	}

	if c.RefreshDebounce < 0 {
		errs = append(errs, errors.New("REFRESH_DEBOUNCE_MS must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SECONDS must be positive"))
	}

	return errors.Join(errs...)
}

// databaseURL prefers DB_URL and otherwise assembles one from the DB_* parts.
func databaseURL() string {
	if v := os.Getenv("DB_URL"); v != "" {
		return v
	}
	host, name := os.Getenv("DB_HOST"), os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass, ok := os.LookupEnv("DB_PASSWORD"); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
