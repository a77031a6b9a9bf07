package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"menuviz/internal/config"
	"menuviz/internal/daemon"
	"menuviz/internal/logging"
	"menuviz/internal/preflight"
)

// PIDFileName is written inside the log directory while menuvizd runs.
const PIDFileName = "menuvizd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Diagnostic forces debug logging and tags every line with a run id.
	Diagnostic bool
}

// Run starts the menuviz daemon and blocks until ctx ends or a termination
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.CheckDirectories(cfg) {
		if result.Passed {
			continue
		}
		logging.ErrorWithContext(logger, "directory check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "check paths.data_dir and paths.log_dir permissions"),
		)
		return fmt.Errorf("%s: %s", result.Name, result.Detail)
	}

	logDependencySnapshot(logger, cfg)
	pidPath := ""
	if cfg.Paths.LogDir != "" {
		pidPath = filepath.Join(cfg.Paths.LogDir, PIDFileName)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if pidPath != "" {
		defer os.Remove(pidPath)
	}

	components, err := Build(signalCtx, cfg, logger, BuildOptions{})
	if err != nil {
		logger.Error("build runtime", logging.Error(err))
		return err
	}
	defer components.Close()

	d, err := daemon.New(cfg, components.Store, components.State, components.Session, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("menuviz daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	if opts.Diagnostic {
		level = "debug"
	}
	loggerOpts := logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		Development: opts.Development,
	}
	if cfg.Paths.LogDir != "" {
		loggerOpts.FilePath = filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	}
	logger, err := logging.New(loggerOpts)
	if err != nil {
		return nil, err
	}
	if opts.Diagnostic {
		runID := uuid.NewString()
		logger = logger.With(logging.String("run_id", runID))
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		)
	}
	return logger, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	llmCfg := cfg.GetLLM()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(llmCfg.APIKey) != ""),
		logging.String("llm_model", llmCfg.Model),
		logging.String("vision_model", cfg.VisionLLM().Model),
		logging.String("image_model", cfg.ImageGeneration.Model),
		logging.Bool("capture_available", binaryAvailable(cfg.Camera.CaptureCommand)),
		logging.String("capture_binary", cfg.Camera.CaptureCommand),
		logging.Bool("speech_available", binaryAvailable(cfg.Speech.Command)),
		logging.String("speech_binary", cfg.Speech.Command),
		logging.Bool("analytics_enabled", cfg.Analytics.Enabled),
		logging.String("analytics_sink", cfg.Analytics.Sink),
		logging.Bool("s3_export_configured", strings.TrimSpace(cfg.Export.S3Bucket) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
