// Package config loads server configuration from floodwatch.yml and the
// environment. Environment variables always win over file values so the
// server can be configured entirely from a .env file in development and
// from real environment variables in production.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	AppName       string `yaml:"app_name"`
	Mode          string `yaml:"mode"` // development, production, test
	ListenAddress string `yaml:"listen_address"`
	Port          string `yaml:"port"`
	BodyLimit     int64  `yaml:"body_limit"`
	CORS          bool   `yaml:"cors"`

	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
}

// DatabaseConfig holds relational store connection settings
type DatabaseConfig struct {
	// sqlite, postgres, mysql, mssql
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// CacheConfig holds response cache settings. Redis is optional; when it is
// unreachable the server falls back to the in-process cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// APIConfig holds the domain value sets consumed by request validation.
// These are runtime configuration, not literals baked into handlers.
type APIConfig struct {
	SocialNetworks   []string `yaml:"social_networks"`
	Languages        []string `yaml:"languages"`
	RegionCodes      []string `yaml:"region_codes"`
	Formats          []string `yaml:"formats"`
	FormatDefault    string   `yaml:"format_default"`
	GeoFormats       []string `yaml:"geo_formats"`
	GeoFormatDefault string   `yaml:"geo_format_default"`
	// Maximum allowed span between an archive query's start and end, in seconds
	TimeWindowMax int64 `yaml:"time_window_max"`
}

// LoadConfig loads configuration from floodwatch.yml (if present) and the
// environment. A .env file in the working directory is honored first.
func LoadConfig() (*Config, error) {
	// .env is optional; missing file is not an error
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := findConfigFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		AppName:       "floodwatch-server",
		Mode:          "production",
		ListenAddress: "0.0.0.0",
		Port:          "8001",
		BodyLimit:     100 << 10, // 100kb
		CORS:          false,
		Database: DatabaseConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "floodwatch",
			Username: "floodwatch",
			Password: "floodwatch",
			SSLMode:  "disable",
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     time.Minute,
			// Host empty means in-process caching; set CACHE_HOST for redis
			Host: "",
			Port: "6379",
		},
		Log: LogConfig{
			Level: "error",
			JSON:  false,
		},
		API: APIConfig{
			SocialNetworks:   []string{"facebook", "twitter", "telegram"},
			Languages:        []string{"en", "id"},
			RegionCodes:      []string{"jbd", "bdg", "sby"},
			Formats:          []string{"json"},
			FormatDefault:    "json",
			GeoFormats:       []string{"json", "geojson", "topojson"},
			GeoFormatDefault: "topojson",
			TimeWindowMax:    1209600, // two weeks
		},
	}
}

// applyEnv overlays environment variables onto the loaded configuration
func (c *Config) applyEnv() {
	setString(&c.AppName, "APP_NAME")
	setString(&c.Mode, "MODE")
	setString(&c.ListenAddress, "LISTEN_ADDRESS")
	setString(&c.Port, "PORT")
	setInt64(&c.BodyLimit, "BODY_LIMIT")
	setBool(&c.CORS, "CORS")

	setString(&c.Database.Type, "DB_TYPE")
	setString(&c.Database.Host, "DB_HOSTNAME")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.Username, "DB_USERNAME")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setBool(&c.Cache.Enabled, "CACHE")
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	setString(&c.Cache.Host, "CACHE_HOST")
	setString(&c.Cache.Port, "CACHE_PORT")
	setString(&c.Cache.Password, "CACHE_PASSWORD")
	setInt(&c.Cache.DB, "CACHE_DB")

	setString(&c.Log.Level, "LOG_LEVEL")
	setBool(&c.Log.JSON, "LOG_JSON")

	setList(&c.API.SocialNetworks, "SOCIAL_NETWORKS")
	setList(&c.API.Languages, "LANGUAGES")
	setList(&c.API.RegionCodes, "REGION_CODES")
	setList(&c.API.Formats, "FORMATS")
	setString(&c.API.FormatDefault, "FORMAT_DEFAULT")
	setList(&c.API.GeoFormats, "GEO_FORMATS")
	setString(&c.API.GeoFormatDefault, "GEO_FORMAT_DEFAULT")
	setInt64(&c.API.TimeWindowMax, "API_REPORTS_TIME_WINDOW_MAX")
}

// TimeWindowMaxDuration returns the archive window cap as a duration
func (c *Config) TimeWindowMaxDuration() time.Duration {
	return time.Duration(c.API.TimeWindowMax) * time.Second
}

// IsTruthy reports whether an environment value means "enabled"
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "enabled":
		return true
	}
	return false
}

// findConfigFile searches for floodwatch.yml in common locations
func findConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	searchPaths := []string{
		filepath.Join(cwd, "floodwatch.yml"),
		filepath.Join(cwd, "../floodwatch.yml"),
		"/etc/floodwatch/floodwatch.yml",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = IsTruthy(v)
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
