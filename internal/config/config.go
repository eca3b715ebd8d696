// Package config loads configuration from environment variables with an
// optional YAML file overlay.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies the embedding backend.
type Provider string

const (
	ProviderOllama  Provider = "ollama"
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

// DefaultConfigFile is looked up in the working directory when no explicit
// config file is given.
const DefaultConfigFile = "episearch.yaml"

// Config holds all configuration values.
type Config struct {
	// Document store
	DataDir string

	// Embedding
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int
	OllamaHost     string
	OpenAIAPIKey   string
	AWSRegion      string

	// Search
	DefaultK int

	// Server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, applying the YAML
// overlay from DefaultConfigFile when it exists. Environment variables win
// over file values.
func Load() (Config, error) {
	cfg := Config{
		DataDir:        "data",
		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,
		OllamaHost:     "http://localhost:11434",
		DefaultK:       3,
		ServerPort:     "8080",
		LogFile:        "/tmp/episearch.log",
		LogLevel:       slog.LevelInfo,
	}

	if err := cfg.applyFile(DefaultConfigFile); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load with an explicit config file path. The file must exist.
func LoadFile(path string) (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := cfg.applyFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with optional fields so absent keys leave the
// defaults untouched.
type fileConfig struct {
	DataDir        *string `yaml:"data_dir"`
	EmbedProvider  *string `yaml:"embed_provider"`
	EmbedModel     *string `yaml:"embed_model"`
	EmbedDimension *int    `yaml:"embed_dimension"`
	OllamaHost     *string `yaml:"ollama_host"`
	AWSRegion      *string `yaml:"aws_region"`
	DefaultK       *int    `yaml:"default_k"`
	ServerPort     *string `yaml:"server_port"`
	LogFile        *string `yaml:"log_file"`
	LogLevel       *string `yaml:"log_level"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.DataDir != nil {
		c.DataDir = *fc.DataDir
	}
	if fc.EmbedProvider != nil {
		c.EmbedProvider = Provider(*fc.EmbedProvider)
	}
	if fc.EmbedModel != nil {
		c.EmbedModel = *fc.EmbedModel
	}
	if fc.EmbedDimension != nil {
		c.EmbedDimension = *fc.EmbedDimension
	}
	if fc.OllamaHost != nil {
		c.OllamaHost = *fc.OllamaHost
	}
	if fc.AWSRegion != nil {
		c.AWSRegion = *fc.AWSRegion
	}
	if fc.DefaultK != nil {
		c.DefaultK = *fc.DefaultK
	}
	if fc.ServerPort != nil {
		c.ServerPort = *fc.ServerPort
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.LogLevel != nil {
		c.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnv("EPISEARCH_DATA_DIR", c.DataDir)
	c.EmbedProvider = Provider(getEnv("EPISEARCH_EMBED_PROVIDER", string(c.EmbedProvider)))
	c.EmbedModel = getEnv("EPISEARCH_EMBED_MODEL", c.EmbedModel)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.ServerPort = getEnv("EPISEARCH_SERVER_PORT", c.ServerPort)
	c.LogFile = getEnv("EPISEARCH_LOG_FILE", c.LogFile)
	c.LogLevel = parseLogLevel(getEnv("EPISEARCH_LOG_LEVEL", c.LogLevel.String()))

	if v := os.Getenv("EPISEARCH_EMBED_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("EPISEARCH_EMBED_DIMENSION: invalid value %q", v)
		}
		c.EmbedDimension = n
	}
	if v := os.Getenv("EPISEARCH_DEFAULT_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("EPISEARCH_DEFAULT_K: invalid value %q", v)
		}
		c.DefaultK = n
	}

	switch c.EmbedProvider {
	case ProviderOllama, ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbedProvider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
