// Package config provides configuration loading and management for semrec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/semrec/export"
	"github.com/c360studio/semrec/objectstore"
	"github.com/c360studio/semrec/temporal"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreKV     = "kv"
)

// Config represents the complete semrec configuration
type Config struct {
	Recorder    RecorderConfig    `yaml:"recorder"`
	NATS        NATSConfig        `yaml:"nats"`
	Store       StoreConfig       `yaml:"store"`
	Export      ExportConfig      `yaml:"export"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// RecorderConfig configures scene sampling
type RecorderConfig struct {
	// TicksPerSecond is the sampling rate, 1..60
	TicksPerSecond int `yaml:"ticks_per_second" env:"SEMREC_TICKS_PER_SECOND"`
	// Include lists entity name globs to record (empty = all)
	Include []string `yaml:"include" env:"SEMREC_INCLUDE" envSeparator:","`
	// Exclude lists entity name globs to skip
	Exclude []string `yaml:"exclude" env:"SEMREC_EXCLUDE" envSeparator:","`
	// Session names the recording; generated when empty
	Session string `yaml:"session" env:"SEMREC_SESSION"`
	// QueueSize is the fact queue buffer
	QueueSize int `yaml:"queue_size"`
}

// NATSConfig configures the fact transport
type NATSConfig struct {
	// URL is the NATS server URL; credentials belong in the URL userinfo and
	// are only read from the environment
	URL string `yaml:"url" env:"SEMREC_NATS_URL"`
	// SubjectPrefix is prepended to per-session subjects
	SubjectPrefix string `yaml:"subject_prefix"`
	// StreamMaxAge bounds retention of the fact stream
	StreamMaxAge time.Duration `yaml:"stream_max_age"`
}

// StoreConfig selects the replay store
type StoreConfig struct {
	// Backend is "sqlite" or "kv"
	Backend string `yaml:"backend" env:"SEMREC_STORE"`
	// Path is the sqlite database file
	Path string `yaml:"path" env:"SEMREC_STORE_PATH"`
}

// ExportConfig configures RDF export
type ExportConfig struct {
	Profile string `yaml:"profile"`
	Format  string `yaml:"format"`
	Dir     string `yaml:"dir"`
}

// ObjectStoreConfig configures export upload. Keys are never written to or
// read from config files.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" env:"SEMREC_S3_ENDPOINT"`
	AccessKey string `yaml:"-" env:"SEMREC_S3_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"SEMREC_S3_SECRET_KEY"`
	Region    string `yaml:"region" env:"SEMREC_S3_REGION"`
	UseSSL    bool   `yaml:"use_ssl" env:"SEMREC_S3_USE_SSL"`
	Bucket    string `yaml:"bucket" env:"SEMREC_S3_BUCKET"`
	Prefix    string `yaml:"prefix"`
}

// Client returns the object store client settings.
func (o ObjectStoreConfig) Client() objectstore.Config {
	return objectstore.Config{
		Endpoint:  o.Endpoint,
		AccessKey: o.AccessKey,
		SecretKey: o.SecretKey,
		Region:    o.Region,
		UseSSL:    o.UseSSL,
		Bucket:    o.Bucket,
		Prefix:    o.Prefix,
	}
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address (empty = disabled)
	Addr string `yaml:"addr" env:"SEMREC_METRICS_ADDR"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Recorder: RecorderConfig{
			TicksPerSecond: 10,
			QueueSize:      256,
		},
		NATS: NATSConfig{
			URL:           "", // SEMREC_NATS_URL or disabled
			SubjectPrefix: "semrec.facts",
			StreamMaxAge:  7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Backend: StoreSQLite,
			Path:    "semrec.db",
		},
		Export: ExportConfig{
			Profile: string(export.ProfileMinimal),
			Format:  string(export.FormatTurtle),
			Dir:     ".",
		},
		ObjectStore: ObjectStoreConfig{
			Region: "us-east-1",
			Bucket: "semrec-sessions",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	tps := c.Recorder.TicksPerSecond
	if tps < temporal.MinTicksPerSecond || tps > temporal.MaxTicksPerSecond {
		return fmt.Errorf("recorder.ticks_per_second must be between %d and %d, got %d",
			temporal.MinTicksPerSecond, temporal.MaxTicksPerSecond, tps)
	}
	for _, p := range append(append([]string(nil), c.Recorder.Include...), c.Recorder.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("recorder: invalid entity pattern %q", p)
		}
	}
	if c.Recorder.QueueSize < 0 {
		return fmt.Errorf("recorder.queue_size must not be negative")
	}

	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	case StoreKV:
		// an empty nats.url connects to the local default
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", StoreSQLite, StoreKV, c.Store.Backend)
	}

	if _, ok := export.Profiles[export.Profile(c.Export.Profile)]; !ok {
		return fmt.Errorf("export.profile %q is not supported", c.Export.Profile)
	}
	if _, ok := export.GetFormatInfo(export.Format(c.Export.Format)); !ok {
		return fmt.Errorf("export.format %q is not supported", c.Export.Format)
	}

	if c.ObjectStore.Endpoint != "" {
		if err := c.ObjectStore.Client().Validate(); err != nil {
			return fmt.Errorf("object_store: %w", err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Recorder
	if other.Recorder.TicksPerSecond != 0 {
		c.Recorder.TicksPerSecond = other.Recorder.TicksPerSecond
	}
	if len(other.Recorder.Include) > 0 {
		c.Recorder.Include = other.Recorder.Include
	}
	if len(other.Recorder.Exclude) > 0 {
		c.Recorder.Exclude = other.Recorder.Exclude
	}
	if other.Recorder.Session != "" {
		c.Recorder.Session = other.Recorder.Session
	}
	if other.Recorder.QueueSize != 0 {
		c.Recorder.QueueSize = other.Recorder.QueueSize
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}
	if other.NATS.StreamMaxAge != 0 {
		c.NATS.StreamMaxAge = other.NATS.StreamMaxAge
	}

	// Store
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	// Export
	if other.Export.Profile != "" {
		c.Export.Profile = other.Export.Profile
	}
	if other.Export.Format != "" {
		c.Export.Format = other.Export.Format
	}
	if other.Export.Dir != "" {
		c.Export.Dir = other.Export.Dir
	}

	// Object store
	if other.ObjectStore.Endpoint != "" {
		c.ObjectStore.Endpoint = other.ObjectStore.Endpoint
	}
	if other.ObjectStore.Region != "" {
		c.ObjectStore.Region = other.ObjectStore.Region
	}
	if other.ObjectStore.UseSSL {
		c.ObjectStore.UseSSL = true
	}
	if other.ObjectStore.Bucket != "" {
		c.ObjectStore.Bucket = other.ObjectStore.Bucket
	}
	if other.ObjectStore.Prefix != "" {
		c.ObjectStore.Prefix = other.ObjectStore.Prefix
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
