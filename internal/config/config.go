package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DownloadsConfig struct {
	Dir string `yaml:"dir"`
}

// LimitsConfig bounds what callers may enqueue and how large resolved
// media may be before a job is rejected outright.
type LimitsConfig struct {
	Formats            []string `yaml:"formats"`
	Qualities          []string `yaml:"qualities"`
	AllowedHosts       []string `yaml:"allowedHosts"`
	MaxDurationSeconds int64    `yaml:"maxDurationSeconds"`
	MaxFileSizeBytes   int64    `yaml:"maxFileSizeBytes"`
	MaxPlaylistItems   int      `yaml:"maxPlaylistItems"`
}

type WorkerConfig struct {
	PoolSize          int `yaml:"poolSize"`
	PollIntervalMs    int `yaml:"pollIntervalMs"`
	MaxRetries        int `yaml:"maxRetries"`
	RetryBackoffMs    int `yaml:"retryBackoffMs"`
	ResolveTimeoutMs  int `yaml:"resolveTimeoutMs"`
	DownloadTimeoutMs int `yaml:"downloadTimeoutMs"`
}

type EventsConfig struct {
	SubscriberBuffer int `yaml:"subscriberBuffer"`
}

// RetentionConfig controls TTL-like deletion of terminal jobs and their
// artifacts so that disk usage does not grow without bound.
type RetentionConfig struct {
	Enabled              bool `yaml:"enabled"`
	SweepIntervalMinutes int  `yaml:"sweepIntervalMinutes"`
	WindowHours          int  `yaml:"windowHours"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Limits    LimitsConfig    `yaml:"limits"`
	Worker    WorkerConfig    `yaml:"worker"`
	Events    EventsConfig    `yaml:"events"`
	Retention RetentionConfig `yaml:"retention"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Redis     RedisConfig     `yaml:"redis"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv lets deployments override the operational knobs without
// editing the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SNATCH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SNATCH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("SNATCH_DOWNLOAD_DIR"); v != "" {
		cfg.Downloads.Dir = v
	}
	if v := os.Getenv("SNATCH_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.PoolSize = n
		}
	}
	if v := os.Getenv("SNATCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxRetries = n
		}
	}
	if v := os.Getenv("SNATCH_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.WindowHours = n
		}
	}
	if v := os.Getenv("SNATCH_MAX_DURATION_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MaxDurationSeconds = n
		}
	}
	if v := os.Getenv("SNATCH_MAX_FILE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv("SNATCH_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Downloads.Dir == "" {
		cfg.Downloads.Dir = "downloads"
	}
	if len(cfg.Limits.Formats) == 0 {
		cfg.Limits.Formats = []string{"mp4", "mp3"}
	}
	if len(cfg.Limits.Qualities) == 0 {
		cfg.Limits.Qualities = []string{"best", "1080", "720", "360"}
	}
	if cfg.Limits.MaxDurationSeconds == 0 {
		cfg.Limits.MaxDurationSeconds = 3600
	}
	if cfg.Limits.MaxFileSizeBytes == 0 {
		cfg.Limits.MaxFileSizeBytes = 5 << 30
	}
	if cfg.Limits.MaxPlaylistItems == 0 {
		cfg.Limits.MaxPlaylistItems = 200
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 2
	}
	if cfg.Worker.PollIntervalMs == 0 {
		cfg.Worker.PollIntervalMs = 500
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoffMs == 0 {
		cfg.Worker.RetryBackoffMs = 2000
	}
	if cfg.Worker.ResolveTimeoutMs == 0 {
		cfg.Worker.ResolveTimeoutMs = 30000
	}
	if cfg.Worker.DownloadTimeoutMs == 0 {
		cfg.Worker.DownloadTimeoutMs = 1800000
	}
	if cfg.Events.SubscriberBuffer == 0 {
		cfg.Events.SubscriberBuffer = 64
	}
	if cfg.Retention.SweepIntervalMinutes == 0 {
		cfg.Retention.SweepIntervalMinutes = 30
	}
	if cfg.Retention.WindowHours == 0 {
		cfg.Retention.WindowHours = 24
	}
}
