package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"finn_scrooper/normalize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSiteID         = "finn_homes"
	DefaultBaseURL        = "https://www.finn.no/realestate/homes/search.html"
	DefaultResultsPerPage = 50
	DefaultTimeZone       = normalize.DefaultTimeZone
	DefaultHandler        = "nextdata"
)

var (
	ErrMissingBaseURL     = errors.New("base_url is required")
	ErrInvalidBaseURL     = errors.New("base_url must be an absolute http(s) URL")
	ErrInvalidPerPage     = errors.New("results_per_page must be at least 1")
	ErrInvalidMaxPages    = errors.New("max_pages must be non-negative")
	ErrInvalidTimeZone    = errors.New("timezone is not a known IANA zone")
	ErrScheduleConflict   = errors.New("set SCRAPE_CRON or SCRAPE_INTERVAL, not both")
	ErrInvalidHTTPTimeout = errors.New("HTTP_TIMEOUT_SEC must be at least 1")
	ErrDuplicateSiteID    = errors.New("duplicate site id")
)

type Config struct {
	Scheduler SchedulerConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	LogPath   string
	LogLevel  string
	SitesDir  string
	Sites     map[string]*SiteConfig
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
}

type StorageConfig struct {
	DBPath      string
	DatabaseURL string
	CSVPath     string
}

type SiteConfig struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Handler        string `yaml:"handler"`
	BaseURL        string `yaml:"base_url"`
	ResultsPerPage int    `yaml:"results_per_page"`
	TimeZone       string `yaml:"timezone"`
	MaxPages       int    `yaml:"max_pages"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		HTTP: HTTPConfig{
			Timeout:   time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
			UserAgent: getEnv("HTTP_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			ProxyURL:  os.Getenv("HTTP_PROXY_URL"),
		},
		Storage: StorageConfig{
			DBPath:      getEnv("DB_PATH", "scraper.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			CSVPath:     os.Getenv("CSV_OUTPUT_PATH"),
		},
		LogPath:  getEnv("LOG_PATH", "daemon.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		SitesDir: getEnv("SITES_DIR", filepath.Join("config", "sites")),
		Sites:    make(map[string]*SiteConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("parse SCRAPE_INTERVAL: %w", err)
		}
		cfg.Scheduler.Interval = d
	}

	if err := cfg.loadSiteConfigs(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSiteConfigs() error {
	entries, err := os.ReadDir(c.SitesDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(c.SitesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if site.ID == "" {
			site.ID = entry.Name()[:len(entry.Name())-len(".yaml")]
		}
		site.applyDefaults()

		if _, dup := c.Sites[site.ID]; dup {
			return fmt.Errorf("%s: %w: %s", path, ErrDuplicateSiteID, site.ID)
		}
		c.Sites[site.ID] = &site
	}

	if len(c.Sites) == 0 {
		site := DefaultSite()
		c.Sites[site.ID] = site
	}

	return nil
}

// DefaultSite is used when no site files exist.
func DefaultSite() *SiteConfig {
	site := &SiteConfig{
		ID:      DefaultSiteID,
		Name:    "FINN homes for sale",
		BaseURL: DefaultBaseURL,
	}
	site.applyDefaults()
	return site
}

func (s *SiteConfig) applyDefaults() {
	if s.Handler == "" {
		s.Handler = DefaultHandler
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.ResultsPerPage == 0 {
		s.ResultsPerPage = DefaultResultsPerPage
	}
	if s.TimeZone == "" {
		s.TimeZone = DefaultTimeZone
	}
	if s.Name == "" {
		s.Name = s.ID
	}
}

func (c *Config) Validate() error {
	if c.Scheduler.Cron != "" && c.Scheduler.Interval > 0 {
		return ErrScheduleConflict
	}
	if c.HTTP.Timeout < time.Second {
		return ErrInvalidHTTPTimeout
	}
	for id, site := range c.Sites {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("site %s: %w", id, err)
		}
	}
	return nil
}

func (s *SiteConfig) Validate() error {
	if s.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if s.ResultsPerPage < 1 {
		return ErrInvalidPerPage
	}
	if s.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if _, err := normalize.LoadZone(s.TimeZone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeZone, s.TimeZone)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
