package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeImageGeneration()
	c.normalizeTranslation()
	c.normalizeAnalytics()
	c.normalizeExport()
	c.normalizeCamera()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MENUVIZ_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{"MENUVIZ_LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.VisionModel = strings.TrimSpace(c.LLM.VisionModel)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeImageGeneration() {
	ig := &c.ImageGeneration
	ig.BaseURL = strings.TrimRight(strings.TrimSpace(ig.BaseURL), "/")
	if ig.BaseURL == "" {
		ig.BaseURL = defaultImageBaseURL
	}
	ig.Model = strings.TrimSpace(ig.Model)
	if ig.Model == "" {
		ig.Model = defaultImageModel
	}
	if ig.TimeoutSeconds <= 0 {
		ig.TimeoutSeconds = defaultImageTimeoutSeconds
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Translation.DefaultLanguage))
	if c.Translation.DefaultLanguage == "" {
		c.Translation.DefaultLanguage = defaultLanguage
	}
}

func (c *Config) normalizeAnalytics() {
	c.Analytics.Sink = strings.ToLower(strings.TrimSpace(c.Analytics.Sink))
	if c.Analytics.Sink == "" {
		c.Analytics.Sink = defaultAnalyticsSink
	}
	brokers := c.Analytics.KafkaBrokers[:0]
	for _, broker := range c.Analytics.KafkaBrokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Analytics.KafkaBrokers = brokers
	if value, ok := os.LookupEnv("MENUVIZ_KAFKA_BROKERS"); ok && len(c.Analytics.KafkaBrokers) == 0 {
		for _, broker := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(broker); trimmed != "" {
				c.Analytics.KafkaBrokers = append(c.Analytics.KafkaBrokers, trimmed)
			}
		}
	}
	c.Analytics.KafkaTopic = strings.TrimSpace(c.Analytics.KafkaTopic)
	if c.Analytics.KafkaTopic == "" {
		c.Analytics.KafkaTopic = defaultKafkaTopic
	}
}

func (c *Config) normalizeExport() {
	c.Export.S3Bucket = strings.TrimSpace(c.Export.S3Bucket)
	c.Export.S3Region = strings.TrimSpace(c.Export.S3Region)
	if c.Export.S3Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
			c.Export.S3Region = strings.TrimSpace(value)
		} else {
			c.Export.S3Region = defaultS3Region
		}
	}
	c.Export.S3Prefix = strings.Trim(strings.TrimSpace(c.Export.S3Prefix), "/")
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Camera.CaptureCommand = strings.TrimSpace(c.Camera.CaptureCommand)
	if c.Camera.CaptureCommand == "" {
		c.Camera.CaptureCommand = defaultCaptureCommand
	}
	if len(c.Camera.CaptureArgs) == 0 {
		c.Camera.CaptureArgs = defaultCaptureArgs()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
