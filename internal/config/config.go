package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Addr            string
	ShutdownTimeout time.Duration

	// Task settings
	FetchTimeout         time.Duration
	MaxConcurrentScrapes int
	Retention            time.Duration
	SweepInterval        time.Duration

	// Deployment file with the filter vocabulary and status labels
	ConfigFile string

	// Booking portal settings
	PortalURL      string
	PortalUsername string
	PortalPassword string

	// Telemetry settings
	OTLPTracesEndpoint  string
	OTLPMetricsEndpoint string

	// Client settings
	ServerURL    string
	PollInterval time.Duration

	LogLevel string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Addr:                 ":8080",
		ShutdownTimeout:      10 * time.Second,
		FetchTimeout:         2 * time.Minute,
		MaxConcurrentScrapes: 4,
		Retention:            time.Hour,
		SweepInterval:        time.Minute,
		ConfigFile:           "roomfinder.json5",
		PortalURL:            "https://fbs.intranet.smu.edu.sg",
		ServerURL:            "http://localhost:8080",
		PollInterval:         time.Second,
		LogLevel:             "info",
	}
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	if addr := os.Getenv("ROOMFINDER_ADDR"); addr != "" {
		c.Addr = addr
	}

	loadDuration("ROOMFINDER_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	loadDuration("ROOMFINDER_FETCH_TIMEOUT", &c.FetchTimeout)
	loadDuration("ROOMFINDER_RETENTION", &c.Retention)
	loadDuration("ROOMFINDER_SWEEP_INTERVAL", &c.SweepInterval)
	loadDuration("ROOMFINDER_POLL_INTERVAL", &c.PollInterval)

	if limit := os.Getenv("ROOMFINDER_MAX_CONCURRENT_SCRAPES"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			c.MaxConcurrentScrapes = l
		}
	}

	if file := os.Getenv("ROOMFINDER_CONFIG_FILE"); file != "" {
		c.ConfigFile = file
	}

	if portal := os.Getenv("ROOMFINDER_PORTAL_URL"); portal != "" {
		c.PortalURL = portal
	}

	// FBS portal login
	c.PortalUsername = os.Getenv("SMU_FBS_USERNAME")
	c.PortalPassword = os.Getenv("SMU_FBS_PASSWORD")

	c.OTLPTracesEndpoint = os.Getenv("ROOMFINDER_OTLP_TRACES_ENDPOINT")
	c.OTLPMetricsEndpoint = os.Getenv("ROOMFINDER_OTLP_METRICS_ENDPOINT")

	if server := os.Getenv("ROOMFINDER_SERVER"); server != "" {
		c.ServerURL = server
	}

	if level := os.Getenv("ROOMFINDER_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// loadDuration accepts Go duration strings ("90s") or plain milliseconds
func loadDuration(key string, target *time.Duration) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*target = d
		return
	}
	if ms, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(ms) * time.Millisecond
	}
}

// HasCredentials reports whether portal credentials were supplied
func (c *Config) HasCredentials() bool {
	return c.PortalUsername != "" && c.PortalPassword != ""
}

// Validate checks if the configuration is valid for running the server
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got: %s", c.FetchTimeout)
	}

	if c.MaxConcurrentScrapes <= 0 {
		return fmt.Errorf("max concurrent scrapes must be positive, got: %d", c.MaxConcurrentScrapes)
	}

	if c.Retention < 0 {
		return fmt.Errorf("retention must be non-negative, got: %s", c.Retention)
	}

	if c.Retention > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive when retention is set, got: %s", c.SweepInterval)
	}

	if _, err := url.ParseRequestURI(c.PortalURL); err != nil {
		return fmt.Errorf("invalid portal url %q: %w", c.PortalURL, err)
	}

	if c.ConfigFile == "" {
		return fmt.Errorf("config file cannot be empty")
	}

	return nil
}
