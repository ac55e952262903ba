package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"familytree/pkg/config"

	"gopkg.in/yaml.v3"
)

type TimelineConfig struct {
	CacheTTL   time.Duration `yaml:"-"`
	SweepLimit int           `yaml:"sweep_limit"`
}

type Config struct {
	DB       config.DBConfig     `yaml:"db"`
	MQ       config.MQConfig     `yaml:"mq"`
	Redis    config.RedisConfig  `yaml:"redis"`
	JWT      config.JWTConfig    `yaml:"jwt"`
	Server   config.ServerConfig `yaml:"server"`
	Timeline TimelineConfig      `yaml:"timeline"`
}

// Load reads the layered yaml config and applies environment overrides.
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// yaml cannot decode "30s" into a time.Duration, so the TTL is pulled
	// from the raw map and parsed by hand.
	if timeline, ok := cfgMap["timeline"].(map[string]interface{}); ok {
		if ttl, ok := timeline["cache_ttl"].(string); ok {
			if d, err := time.ParseDuration(ttl); err == nil {
				cfg.Timeline.CacheTTL = d
			}
		}
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)

	if ttl := os.Getenv("TIMELINE_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Timeline.CacheTTL = d
		}
	}
	if limit := os.Getenv("TIMELINE_SWEEP_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Timeline.SweepLimit = n
		}
	}

	if cfg.Timeline.CacheTTL <= 0 {
		cfg.Timeline.CacheTTL = 30 * time.Second
	}
	if cfg.Timeline.SweepLimit <= 0 {
		cfg.Timeline.SweepLimit = 500
	}

	return &cfg
}
