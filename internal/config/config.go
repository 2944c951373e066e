package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/boxflow/internal/flow"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL      time.Duration
	FlowTimeout time.Duration

	// Parsing
	PDFFallbackPdftotext bool
	PageSelector         string
	SectionLevel         int

	// Flow options; empty values keep the options file or the defaults.
	OptionsFile     string
	Pagination      string
	BoxSelector     string
	ClassPrefix     string
	MaxPagesPerItem int
	LineHeight      int

	// Result storage
	ResultStore   string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("BOXFLOW_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		FlowTimeout: envDuration("FLOW_TIMEOUT", 2*time.Minute),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		PageSelector:         os.Getenv("PAGE_SELECTOR"),
		SectionLevel:         envInt("SECTION_LEVEL", 0),

		OptionsFile:     os.Getenv("FLOW_OPTIONS_FILE"),
		Pagination:      os.Getenv("PAGINATION"),
		BoxSelector:     os.Getenv("BOX_SELECTOR"),
		ClassPrefix:     os.Getenv("CLASS_PREFIX"),
		MaxPagesPerItem: envInt("MAX_PAGES_PER_ITEM", 0),
		LineHeight:      envInt("LINE_HEIGHT", 0),

		ResultStore:   envOr("RESULT_STORE", "memory"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		ResultTTL:     envDuration("RESULT_TTL", 24*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.FlowTimeout <= 0 {
		cfg.FlowTimeout = 2 * time.Minute
	}
	if cfg.SectionLevel < 0 || cfg.SectionLevel > 6 {
		cfg.SectionLevel = 0
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("BOXFLOW_API_KEY is required")
	}
	if c.Pagination != "" {
		if _, err := flow.ParsePagination(c.Pagination); err != nil {
			return fmt.Errorf("PAGINATION: %w", err)
		}
	}
	switch c.ResultStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RESULT_STORE=redis")
		}
	default:
		return fmt.Errorf("RESULT_STORE must be memory or redis, got %q", c.ResultStore)
	}
	return nil
}

// FlowOptions builds the engine options: defaults, then the options file,
// then the environment overrides.
func (c Config) FlowOptions() (flow.Options, error) {
	opts := flow.DefaultOptions()
	if c.OptionsFile != "" {
		var err error
		if opts, err = LoadOptionsFile(c.OptionsFile); err != nil {
			return opts, err
		}
	}
	if c.Pagination != "" {
		p, err := flow.ParsePagination(c.Pagination)
		if err != nil {
			return opts, err
		}
		opts.Pagination = p
	}
	if c.BoxSelector != "" {
		opts.Box = c.BoxSelector
	}
	if c.ClassPrefix != "" {
		opts.ClassPrefix = c.ClassPrefix
	}
	if c.MaxPagesPerItem > 0 {
		opts.MaxPagesPerItem = c.MaxPagesPerItem
	}
	return opts, nil
}

// LoadOptionsFile reads flow options from a YAML file. Keys left out keep
// their defaults; unknown keys are an error.
func LoadOptionsFile(path string) (flow.Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return flow.Options{}, fmt.Errorf("open options file: %w", err)
	}
	defer f.Close()
	return DecodeOptions(f)
}

// DecodeOptions decodes YAML flow options over the defaults.
func DecodeOptions(r io.Reader) (flow.Options, error) {
	opts := flow.DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return flow.Options{}, fmt.Errorf("decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return flow.Options{}, err
	}
	return opts, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
