// Package config carries the run configuration, loaded from the environment
// with CLI flags layered on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DebugMaxPages caps pagination in debug mode so only a tiny part of the
// site is walked.
const DebugMaxPages = 3

type Config struct {
	Site     SiteConfig
	Scraper  ScraperConfig
	Output   OutputConfig
	Remote   RemoteConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type SiteConfig struct {
	Name           string
	BaseURL        string
	CatalogSection string
	Categories     []string
	CategoryChoices []string
}

type ScraperConfig struct {
	MaxPages    int
	DelayMin    time.Duration
	DelayMax    time.Duration
	WaitTimeout time.Duration
	Debug       bool
	InDocker    bool
	Headless    bool
	Country     string
}

type OutputConfig struct {
	Dir        string
	File       string
	CleanLocal bool
}

type RemoteConfig struct {
	SaveToS3    bool
	SaveToGCS   bool
	S3Bucket    string
	GCSBucket   string
	LedgerKey   string
	ImagePrefix string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

func Load() *Config {
	return &Config{
		Site: SiteConfig{
			Name:            getEnvOrDefault("SITE_NAME", "vinted"),
			BaseURL:         getEnvOrDefault("SITE_BASE_URL", "https://www.vinted.cz/"),
			CatalogSection:  getEnvOrDefault("SITE_CATALOG_SECTION", "obleceni"),
			CategoryChoices: getStringSliceOrDefault("SITE_CATEGORY_CHOICES", []string{"zeny", "muzi"}),
		},
		Scraper: ScraperConfig{
			MaxPages:    getIntOrDefault("SCRAPER_MAX_PAGES", 1000),
			DelayMin:    getDurationOrDefault("SCRAPER_DELAY_MIN", 3*time.Second),
			DelayMax:    getDurationOrDefault("SCRAPER_DELAY_MAX", 5*time.Second),
			WaitTimeout: getDurationOrDefault("SCRAPER_WAIT_TIMEOUT", 10*time.Second),
			Headless:    getBoolOrDefault("BROWSER_HEADLESS", true),
			Country:     getEnvOrDefault("SCRAPER_COUNTRY", "Česká republika"),
		},
		Output: OutputConfig{
			Dir:  getEnvOrDefault("OUTPUT_DIR", "data"),
			File: getEnvOrDefault("OUTPUT_FILE", ""),
		},
		Remote: RemoteConfig{
			SaveToS3:    getBoolOrDefault("SAVE_TO_S3", false),
			SaveToGCS:   getBoolOrDefault("SAVE_TO_GCS", false),
			S3Bucket:    getEnvOrDefault("S3_BUCKET", "fashion-aggregator"),
			GCSBucket:   getEnvOrDefault("GCS_BUCKET", "fa-data-scraped"),
			LedgerKey:   getEnvOrDefault("LEDGER_KEY", "data/item_data/vinted/data/item_data_all.jsonl"),
			ImagePrefix: getEnvOrDefault("IMAGE_PREFIX", "data/item_data/images"),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "item_url_scraper"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "scraper:runs"),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			Dir:   getEnvOrDefault("LOG_DIR", "logs"),
		},
	}
}

// Validate rejects malformed configuration before any scraping work begins.
func (c *Config) Validate() error {
	if len(c.Site.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for _, category := range c.Site.Categories {
		if !contains(c.Site.CategoryChoices, category) {
			return fmt.Errorf("unknown category %q, choices are %s",
				category, strings.Join(c.Site.CategoryChoices, ", "))
		}
	}

	if c.Output.File == "" {
		return fmt.Errorf("output file is required")
	}
	if !strings.HasSuffix(c.Output.File, ".txt") {
		return fmt.Errorf("unexpected suffix of output file %q, make sure you use the .txt suffix", c.Output.File)
	}

	if c.Scraper.MaxPages == 0 {
		return fmt.Errorf("max pages must not be 0, at least the starting page is scraped")
	}
	if c.Scraper.DelayMin > c.Scraper.DelayMax {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be greater than SCRAPER_DELAY_MAX")
	}

	return nil
}

// LogFile derives the run log path from the output file name, mirroring the
// URL file layout under the log directory.
func (c *Config) LogFile() string {
	name := strings.TrimSuffix(c.Output.File, ".txt") + ".log"
	return strings.Join([]string{c.Logging.Dir, c.Site.Name, name}, "/")
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
