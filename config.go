package dataoracle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use human-readable
// values like "2s" or "500ms".
type Duration time.Duration

// UnmarshalYAML parses either a duration string or a plain number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("duration must be a string or number: %w", err)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all configuration for the ingestion engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.dataoracle/knowledge.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// UserAgent identifies the crawler to remote sites.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestTimeout is the hard deadline for a single HTTP request.
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	// RateLimitDelay is the minimum interval between requests to one origin.
	RateLimitDelay Duration `json:"rate_limit_delay" yaml:"rate_limit_delay"`

	// MaxRetries is the total number of fetch attempts per target.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryDelay is the pause between fetch attempts.
	RetryDelay Duration `json:"retry_delay" yaml:"retry_delay"`

	// MinBodyBytes treats shorter response bodies as block pages.
	MinBodyBytes int `json:"min_body_bytes" yaml:"min_body_bytes"`

	// RespectRobots enables the advisory robots.txt check.
	RespectRobots bool `json:"respect_robots" yaml:"respect_robots"`

	// MaxConcurrentSources bounds the worker pool. Concurrency is across
	// origins; requests within one origin stay serialized.
	MaxConcurrentSources int `json:"max_concurrent_sources" yaml:"max_concurrent_sources"`

	// QualityThreshold rejects extractions scoring below it (0-10 scale).
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`

	// CuratedDir is the root directory for manual-curation source documents.
	CuratedDir string `json:"curated_dir" yaml:"curated_dir"`

	// CorrespondencesPath optionally points to an xlsx workbook of per-card
	// attribute overrides merged into the extractor's lookup tables.
	CorrespondencesPath string `json:"correspondences_path" yaml:"correspondences_path"`

	// RunDeadline caps the wall-clock time of a whole run. Zero means none.
	RunDeadline Duration `json:"run_deadline" yaml:"run_deadline"`
}

// DefaultConfig returns a Config with polite crawl-etiquette defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:               "",
		UserAgent:            "MysticArcana-DataOracle/1.0 (Educational Research; +https://mysticarcana.app/bot)",
		RequestTimeout:       Duration(10 * time.Second),
		RateLimitDelay:       Duration(2 * time.Second),
		MaxRetries:           3,
		RetryDelay:           Duration(2 * time.Second),
		MinBodyBytes:         500,
		RespectRobots:        true,
		MaxConcurrentSources: 2,
		QualityThreshold:     3.0,
		CuratedDir:           "",
	}
}

// LoadConfig reads a YAML config file and applies it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be >= 1", ErrInvalidConfig)
	}
	if c.MaxConcurrentSources < 1 {
		return fmt.Errorf("%w: max_concurrent_sources must be >= 1", ErrInvalidConfig)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 10 {
		return fmt.Errorf("%w: quality_threshold must be in [0,10]", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "knowledge.db"
	}
	return filepath.Join(home, ".dataoracle", "knowledge.db")
}
