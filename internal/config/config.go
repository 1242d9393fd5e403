package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MalithGihan/flownodes/internal/validate"
)

type Config struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ExecutorURL     string        `yaml:"executor_url" validate:"required,url"`
	ExecutorMode    string        `yaml:"executor_mode" validate:"oneof=remote local"`
	ExecutorTimeout time.Duration `yaml:"executor_timeout" validate:"gt=0"`
	DataRoot        string        `yaml:"data_root" validate:"required"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `yaml:"log_format" validate:"oneof=json text"`
	StaleEdges      string        `yaml:"stale_edges" validate:"oneof=keep prune"`
	AllowSelfLoops  bool          `yaml:"allow_self_loops"`
	Generator       string        `yaml:"generator" validate:"oneof=ollama mock"`
	OllamaURL       string        `yaml:"ollama_url" validate:"required,url"`
	OllamaModel     string        `yaml:"ollama_model" validate:"required"`
	RedirectURL     string        `yaml:"redirect_url" validate:"omitempty,url"`
}

func Defaults() Config {
	return Config{
		Port:            "8081",
		ExecutorURL:     "http://localhost:8000/api",
		ExecutorMode:    "remote",
		ExecutorTimeout: 90 * time.Second,
		DataRoot:        "./projects",
		LogLevel:        "info",
		LogFormat:       "json",
		StaleEdges:      "keep",
		Generator:       "ollama",
		OllamaURL:       "http://localhost:11434",
		OllamaModel:     "llama3:instruct",
	}
}

// Load reads .env (if present), then the YAML file named by FLOWNODES_CONFIG
// (if set), then the environment. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()
	c := Defaults()

	if path := os.Getenv("FLOWNODES_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("config %s: %w", path, err)
		}
	}

	c.Port = getenv("PORT", c.Port)
	c.ExecutorURL = getenv("EXECUTOR_URL", c.ExecutorURL)
	c.ExecutorMode = getenv("EXECUTOR_MODE", c.ExecutorMode)
	c.DataRoot = getenv("DATA_ROOT", c.DataRoot)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv("LOG_FORMAT", c.LogFormat)
	c.StaleEdges = getenv("STALE_EDGES", c.StaleEdges)
	c.Generator = getenv("LLM_GENERATOR", c.Generator)
	c.OllamaURL = getenv("OLLAMA_URL", c.OllamaURL)
	c.OllamaModel = getenv("OLLAMA_MODEL", c.OllamaModel)
	c.RedirectURL = getenv("REDIRECT_URL", c.RedirectURL)

	if v := os.Getenv("EXECUTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("config: EXECUTOR_TIMEOUT: %w", err)
		}
		c.ExecutorTimeout = d
	}
	if v := os.Getenv("ALLOW_SELF_LOOPS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("config: ALLOW_SELF_LOOPS: %w", err)
		}
		c.AllowSelfLoops = b
	}

	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
