package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers supported by the API.
const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	StorageDriver       string
	MongoURI            string
	MongoDatabase       string
	MongoCollection     string
	MongoConnectTimeout time.Duration
	DatabaseURL         string
	RedisURL            string
	StatsCacheTTL       time.Duration
	NATSURL             string
	NATSSubjectPrefix   string
	FacultyUsername     string
	FacultyPassword     string
	FacultyPasswordHash string
	StudentEmailDomain  string
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
	v.SetEnvPrefix("OD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "College OD Management System")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.driver", StorageMongo)
	v.SetDefault("mongo.app_name", "OD-System-Cluster")
	v.SetDefault("mongo.database", "College_OD_System")
	v.SetDefault("mongo.collection", "od_requests")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("stats.cache_ttl", "1m")
	v.SetDefault("nats.subject_prefix", "od.requests")
	v.SetDefault("student.email_domain", "citchennai.net")

	connectTimeout, err := parseDuration(v, "mongo.connect_timeout", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid mongo connect timeout: %w", err)
	}

	statsTTL, err := parseDuration(v, "stats.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		StorageDriver:       strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		MongoURI:            strings.TrimSpace(v.GetString("mongo.uri")),
		MongoDatabase:       v.GetString("mongo.database"),
		MongoCollection:     v.GetString("mongo.collection"),
		MongoConnectTimeout: connectTimeout,
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		StatsCacheTTL:       statsTTL,
		NATSURL:             v.GetString("nats.url"),
		NATSSubjectPrefix:   strings.Trim(v.GetString("nats.subject_prefix"), "."),
		FacultyUsername:     strings.TrimSpace(v.GetString("faculty.username")),
		FacultyPassword:     v.GetString("faculty.password"),
		FacultyPasswordHash: strings.TrimSpace(v.GetString("faculty.password_hash")),
		StudentEmailDomain:  strings.ToLower(strings.TrimSpace(v.GetString("student.email_domain"))),
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			uri, err := buildMongoURI(v.GetString("mongo.username"), v.GetString("mongo.password"), v.GetString("mongo.host"), v.GetString("mongo.app_name"))
			if err != nil {
				return Config{}, err
			}
			cfg.MongoURI = uri
		}
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for the postgres storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.FacultyUsername == "" {
		return Config{}, fmt.Errorf("faculty username must be provided")
	}
	if cfg.FacultyPassword == "" && cfg.FacultyPasswordHash == "" {
		return Config{}, fmt.Errorf("faculty password or password hash must be provided")
	}
	if cfg.StudentEmailDomain == "" {
		return Config{}, fmt.Errorf("student email domain must not be empty")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

// buildMongoURI assembles an SRV connection string from discrete credentials.
func buildMongoURI(username, password, host, appName string) (string, error) {
	username = strings.TrimSpace(username)
	host = strings.TrimSpace(host)
	if username == "" || password == "" {
		return "", fmt.Errorf("mongo username and password must be provided")
	}
	if host == "" {
		return "", fmt.Errorf("mongo host must be provided")
	}

	uri := url.URL{
		Scheme: "mongodb+srv",
		User:   url.UserPassword(username, password),
		Host:   host,
		Path:   "/",
	}
	if appName = strings.TrimSpace(appName); appName != "" {
		uri.RawQuery = url.Values{"appName": []string{appName}}.Encode()
	}

	return uri.String(), nil
}
