package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"menuviz/internal/analytics"
	"menuviz/internal/appstate"
	"menuviz/internal/cache"
	"menuviz/internal/config"
	"menuviz/internal/extraction"
	"menuviz/internal/logging"
	"menuviz/internal/recipe"
	"menuviz/internal/services/imagegen"
	"menuviz/internal/services/llm"
	"menuviz/internal/session"
	"menuviz/internal/speech"
	"menuviz/internal/store"
	"menuviz/internal/translate"
)

// Components are the wired services behind one session. Both menuvizd and
// the CLI build them from config.
type Components struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *store.Store
	State      *appstate.State
	Images     *cache.Tiered
	Translator *translate.Service
	Recipes    *recipe.Service
	Text       *llm.Client
	Tracker    analytics.Tracker
	Speaker    *speech.Speaker
	Session    *session.Session

	closers []func() error
}

// BuildOptions tweaks component construction.
type BuildOptions struct {
	// SpeechFallback receives spoken text when no speech command is set.
	SpeechFallback io.Writer
	// SkipImages leaves the session without an image generator.
	SkipImages bool
}

// Build opens the store and wires every service the session depends on.
// Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BuildOptions) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c := &Components{Config: cfg, Logger: logger, Store: st}
	c.closers = append(c.closers, st.Close)

	tracker, closeTracker, err := analytics.NewFromConfig(cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("analytics: %w", err)
	}
	c.Tracker = tracker
	if closeTracker != nil {
		c.closers = append(c.closers, closeTracker)
	}

	c.State = appstate.Load(ctx, st, cfg.Translation.DefaultLanguage, logger)

	textCfg := cfg.GetLLM()
	c.Text = llm.NewClient(llm.Config{
		APIKey:         textCfg.APIKey,
		BaseURL:        textCfg.BaseURL,
		Model:          textCfg.Model,
		Referer:        textCfg.Referer,
		Title:          textCfg.Title,
		TimeoutSeconds: textCfg.TimeoutSeconds,
	})
	visionCfg := cfg.VisionLLM()
	vision := llm.NewClient(llm.Config{
		APIKey:         visionCfg.APIKey,
		BaseURL:        visionCfg.BaseURL,
		Model:          visionCfg.Model,
		Referer:        visionCfg.Referer,
		Title:          visionCfg.Title,
		TimeoutSeconds: visionCfg.TimeoutSeconds,
	})

	c.Images = cache.New(st, cache.ImageNamespace,
		cache.WithEvictBatch(cfg.Storage.EvictBatch), cache.WithLogger(logger))
	translations := cache.New(st, cache.TranslationNamespace,
		cache.WithEvictBatch(cfg.Storage.EvictBatch), cache.WithLogger(logger))
	c.Translator = translate.New(c.Text, translations,
		translate.WithPace(cfg.TranslationPace()), translate.WithLogger(logger))
	c.Recipes = recipe.New(c.Text)
	c.Speaker = speech.NewSpeaker(cfg.Speech.Command, cfg.Speech.Args, opts.SpeechFallback, logger)

	deps := session.Deps{
		Extractor:  extraction.New(vision, logger),
		Translator: c.Translator,
		Recipes:    c.Recipes,
		Chat:       c.Text,
		State:      c.State,
		Tracker:    c.Tracker,
		Speaker:    c.Speaker,
		Logger:     logger,
	}
	if !opts.SkipImages {
		ig := cfg.ImageGeneration
		deps.Images = imagegen.NewCached(imagegen.NewClient(imagegen.Config{
			BaseURL:        ig.BaseURL,
			Model:          ig.Model,
			Width:          ig.Width,
			Height:         ig.Height,
			Prefetch:       ig.Prefetch,
			TimeoutSeconds: ig.TimeoutSeconds,
		}), c.Images)
	}
	c.Session = session.New(deps,
		session.WithContext(ctx),
		session.WithConcurrency(cfg.ImageGeneration.Concurrency),
		session.WithReleaseDelay(cfg.ReleaseDelay()),
	)
	return c, nil
}

// Close releases the store and analytics sink in reverse order of creation.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
