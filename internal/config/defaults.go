package config

const (
	defaultConfigPath          = "~/.config/menuviz/config.toml"
	defaultDataDir             = "~/.local/share/menuviz"
	defaultLogDir              = "~/.local/share/menuviz/logs"
	defaultAPIBind             = "127.0.0.1:7390"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-2.5-flash"
	defaultLLMReferer          = "https://github.com/menuviz/menuviz"
	defaultLLMTitle            = "MenuViz"
	defaultLLMTimeoutSeconds   = 60
	defaultImageBaseURL        = "https://image.pollinations.ai/prompt"
	defaultImageModel          = "turbo"
	defaultImageSize           = 768
	defaultImageTimeoutSeconds = 30
	defaultImageConcurrency    = 6
	defaultReleaseDelayMS      = 300
	defaultQuotaBytes          = 5 << 20
	defaultEvictBatch          = 50
	defaultLanguage            = "en"
	defaultTranslationPaceMS   = 500
	defaultAnalyticsSink       = "log"
	defaultKafkaTopic          = "menuviz-events"
	defaultS3Region            = "us-east-1"
	defaultS3Prefix            = "menuviz/history"
	defaultCaptureCommand      = "ffmpeg"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultCaptureArgs() []string {
	return []string{"-y", "-f", "video4linux2", "-i", "{device}", "-frames:v", "1", "{output}"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		ImageGeneration: ImageGeneration{
			BaseURL:        defaultImageBaseURL,
			Model:          defaultImageModel,
			Width:          defaultImageSize,
			Height:         defaultImageSize,
			TimeoutSeconds: defaultImageTimeoutSeconds,
			Concurrency:    defaultImageConcurrency,
			ReleaseDelayMS: defaultReleaseDelayMS,
		},
		Storage: Storage{
			QuotaBytes: defaultQuotaBytes,
			EvictBatch: defaultEvictBatch,
		},
		Translation: Translation{
			DefaultLanguage: defaultLanguage,
			PaceMS:          defaultTranslationPaceMS,
		},
		Analytics: Analytics{
			Sink:       defaultAnalyticsSink,
			KafkaTopic: defaultKafkaTopic,
		},
		Export: Export{
			S3Region: defaultS3Region,
			S3Prefix: defaultS3Prefix,
		},
		Camera: Camera{
			Monitor:        true,
			CaptureCommand: defaultCaptureCommand,
			CaptureArgs:    defaultCaptureArgs(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
