package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// LLM contains the chat-completions connection shared by extraction,
// translation, recipes and the concierge.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	VisionModel    string `toml:"vision_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ImageGeneration configures the dish image backend and the dispatcher that
// bounds how many generations run at once.
type ImageGeneration struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	Prefetch       bool   `toml:"prefetch"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
	ReleaseDelayMS int    `toml:"release_delay_ms"`
}

// Storage bounds the persistent key-value store.
type Storage struct {
	QuotaBytes int64 `toml:"quota_bytes"`
	EvictBatch int   `toml:"evict_batch"`
}

// Translation holds translation defaults.
type Translation struct {
	DefaultLanguage string `toml:"default_language"`
	PaceMS          int    `toml:"pace_ms"`
}

// Speech configures text-to-speech output.
type Speech struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Analytics configures where usage events are sent.
type Analytics struct {
	Enabled      bool     `toml:"enabled"`
	Sink         string   `toml:"sink"`
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

// Export configures history export to object storage.
type Export struct {
	S3Bucket string `toml:"s3_bucket"`
	S3Region string `toml:"s3_region"`
	S3Prefix string `toml:"s3_prefix"`
}

// Camera configures device discovery and still capture.
type Camera struct {
	Monitor        bool     `toml:"monitor"`
	Device         string   `toml:"device"`
	CaptureCommand string   `toml:"capture_command"`
	CaptureArgs    []string `toml:"capture_args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MenuViz.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the daemon API bind address
//   - LLM: chat-completions backend for extraction, translation, recipes, chat
//   - ImageGeneration: dish image backend plus dispatcher cap and release delay
//   - Storage: persistent store quota and eviction batch size
//   - Translation: default target language and batch pacing
//   - Speech: text-to-speech command
//   - Analytics: event sink selection
//   - Export: S3 history export target
//   - Camera: hotplug monitoring and capture command
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `toml:"paths"`
	LLM             LLM             `toml:"llm"`
	ImageGeneration ImageGeneration `toml:"image_generation"`
	Storage         Storage         `toml:"storage"`
	Translation     Translation     `toml:"translation"`
	Speech          Speech          `toml:"speech"`
	Analytics       Analytics       `toml:"analytics"`
	Export          Export          `toml:"export"`
	Camera          Camera          `toml:"camera"`
	Logging         Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("menuviz.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the SQLite database backing the persistent store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "menuviz.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "menuvizd.lock")
}

// ReleaseDelay returns the dispatcher slot release grace period.
func (c *Config) ReleaseDelay() time.Duration {
	return time.Duration(c.ImageGeneration.ReleaseDelayMS) * time.Millisecond
}

// TranslationPace returns the pause between sequential batch translations.
func (c *Config) TranslationPace() time.Duration {
	return time.Duration(c.Translation.PaceMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved LLM settings for one caller.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the text-model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// VisionLLM returns the settings used for image extraction.
// Falls back to [llm].model when vision_model is not set.
func (c *Config) VisionLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.LLM.VisionModel); model != "" {
		cfg.Model = model
	}
	return cfg
}

// Redacted returns a copy with secrets masked for display.
func (c *Config) Redacted() Config {
	out := *c
	out.LLM.APIKey = mask(out.LLM.APIKey)
	out.Paths.APIToken = mask(out.Paths.APIToken)
	return out
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
