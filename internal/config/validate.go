package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateImageGeneration(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateImageGeneration() error {
	if err := ensurePositiveMap(map[string]int{
		"image_generation.width":       c.ImageGeneration.Width,
		"image_generation.height":      c.ImageGeneration.Height,
		"image_generation.concurrency": c.ImageGeneration.Concurrency,
	}); err != nil {
		return err
	}
	if c.ImageGeneration.ReleaseDelayMS < 0 {
		return errors.New("image_generation.release_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.QuotaBytes < 0 {
		return errors.New("storage.quota_bytes must be >= 0")
	}
	if c.Storage.EvictBatch <= 0 {
		return errors.New("storage.evict_batch must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.PaceMS < 0 {
		return errors.New("translation.pace_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	switch c.Analytics.Sink {
	case "log", "none":
	case "kafka":
		if c.Analytics.Enabled && len(c.Analytics.KafkaBrokers) == 0 {
			return errors.New("analytics.kafka_brokers must be set when analytics.sink is kafka (or set MENUVIZ_KAFKA_BROKERS)")
		}
	default:
		return fmt.Errorf("analytics.sink: unsupported value %q", c.Analytics.Sink)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
