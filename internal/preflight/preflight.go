package preflight

import (
	"context"
	"strings"

	"menuviz/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckDirectories(cfg)

	results = append(results, CheckLLM(ctx, "Text LLM", cfg.GetLLM()))

	// Vision model (only when it differs from the text model)
	if visionUsesDistinctModel(cfg) {
		results = append(results, CheckLLM(ctx, "Vision LLM", cfg.VisionLLM()))
	}

	results = append(results, CheckImageBackend(ctx, cfg.ImageGeneration.BaseURL))

	if cfg.Analytics.Enabled && cfg.Analytics.Sink == "kafka" {
		results = append(results, CheckKafka(cfg.Analytics.KafkaBrokers))
	}
	if strings.TrimSpace(cfg.Export.S3Bucket) != "" {
		results = append(results, Result{Name: "S3 export", Passed: true, Detail: "s3://" + cfg.Export.S3Bucket + "/" + cfg.Export.S3Prefix})
	}

	return results
}

// CheckDirectories verifies the data directory and, when configured, the
// log directory.
func CheckDirectories(cfg *config.Config) []Result {
	results := []Result{CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// visionUsesDistinctModel returns true when the vision model resolves to a
// different model than the text model. When they're identical, the text
// check already covers it.
func visionUsesDistinctModel(cfg *config.Config) bool {
	return cfg.VisionLLM().Model != cfg.GetLLM().Model
}
