package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"menuviz/internal/cache"
	"menuviz/internal/language"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/services/llm"
)

const (
	defaultPace       = 500 * time.Millisecond
	detectSampleSize  = 5
	translateSystem   = "You are a culinary translator. Respond with a single JSON object only. Do not use markdown."
	detectSystem      = "You identify the language of dish names. Respond with JSON only."
	minIngredientNote = 3
)

// Completer issues JSON-only completions.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service translates dishes and detects menu languages.
type Service struct {
	client Completer
	cache  *cache.Tiered
	pace   time.Duration
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes the service.
type Option func(*Service)

// WithPace sets the pause between calls in Batch.
func WithPace(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.pace = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.NewComponentLogger(logger, "translate")
	}
}

// WithSleeper replaces the pacing sleep.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// New builds a translation service. A nil cache disables caching.
func New(client Completer, c *cache.Tiered, opts ...Option) *Service {
	s := &Service{
		client: client,
		cache:  c,
		pace:   defaultPace,
		logger: logging.NewComponentLogger(nil, "translate"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey returns the cache key for a dish name and target language.
func CacheKey(name, lang string) string {
	return cache.Normalize(name) + "_" + lang
}

// Translate renders a dish into lang, serving repeated requests from the
// cache.
func (s *Service) Translate(ctx context.Context, dish menu.Dish, lang string) (menu.Translation, error) {
	target, ok := language.Find(lang)
	if !ok {
		return menu.Translation{}, services.Wrap(services.ErrValidation, "translate", "translate",
			fmt.Sprintf("unsupported language %q", lang), nil)
	}
	if strings.TrimSpace(dish.Name) == "" {
		return menu.Translation{}, services.Wrap(services.ErrValidation, "translate", "translate", "dish name is empty", nil)
	}
	key := CacheKey(dish.Name, target.Code)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached menu.Translation
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}
	if s.client == nil {
		return menu.Translation{}, services.Wrap(services.ErrConfiguration, "translate", "translate", "llm not configured", nil)
	}

	original := dish.OriginalName
	if strings.TrimSpace(original) == "" {
		original = dish.Name
	}
	content, err := s.client.CompleteJSON(ctx, translateSystem, translatePrompt(original, dish.Description, target.Name))
	if err != nil {
		return menu.Translation{}, services.Wrap(services.ErrExternalTool, "translate", "translate", "translation request failed", err)
	}
	var tr menu.Translation
	if err := llm.DecodeLLMJSON(content, &tr); err != nil {
		return menu.Translation{}, services.Wrap(services.ErrMalformedPayload, "translate", "translate", "decode translation", err)
	}
	if strings.TrimSpace(tr.TranslatedName) == "" {
		return menu.Translation{}, services.Wrap(services.ErrMalformedPayload, "translate", "translate", "translation has no name", nil)
	}
	tr.DetectedLanguage = language.ToISO2(tr.DetectedLanguage)
	if tr.IngredientExplanations == nil {
		tr.IngredientExplanations = []string{}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(tr); err == nil {
			s.cache.Put(ctx, key, string(payload))
		}
	}
	return tr, nil
}

func translatePrompt(name, description, targetName string) string {
	return fmt.Sprintf(`Translate and provide cultural context for this dish.

Dish name: %q
Description: %q

Return JSON with:
1. "translatedName": translation to %s
2. "pronunciation": IPA phonetic notation
3. "simplifiedPronunciation": easy-to-read pronunciation such as "es-car-GO"
4. "culturalContext": 2-3 sentences on origin, cultural significance and traditional preparation
5. "ingredientExplanations": %d-5 key ingredients, each with a short explanation of what it is and its role
6. "originCountry": country of origin
7. "detectedLanguage": ISO 639-1 code of the original language

Be informative but concise.`, name, description, targetName, minIngredientNote)
}

// DetectLanguage guesses the language of a menu from its first dish names.
// It returns "" when the model is unsure.
func (s *Service) DetectLanguage(ctx context.Context, dishes []menu.Dish) (string, error) {
	if len(dishes) == 0 {
		return "", nil
	}
	if s.client == nil {
		return "", services.Wrap(services.ErrConfiguration, "translate", "detect", "llm not configured", nil)
	}
	sample := dishes[:min(detectSampleSize, len(dishes))]
	names := make([]string, 0, len(sample))
	for _, d := range sample {
		name := d.OriginalName
		if strings.TrimSpace(name) == "" {
			name = d.Name
		}
		names = append(names, name)
	}
	prompt := fmt.Sprintf(`Detect the language of these dish names: %q.
Return {"language": "<code>"} with the ISO 639-1 code, e.g. "fr", "es", "en".
If several languages appear, return the most dominant one. If uncertain, return "unknown".`, strings.Join(names, ", "))

	content, err := s.client.CompleteJSON(ctx, detectSystem, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translate", "detect", "detection request failed", err)
	}
	var parsed struct {
		Language string `json:"language"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return "", services.Wrap(services.ErrMalformedPayload, "translate", "detect", "decode detection", err)
	}
	return language.ToISO2(parsed.Language), nil
}

// Hooks observe a batch translation.
type Hooks struct {
	// Start runs before each dish is sent.
	Start func(id string)
	// Done receives each outcome. A failure only affects that dish.
	Done func(id string, tr menu.Translation, err error)
}

// Batch translates dishes one at a time, skipping those already translated
// or loading, and pausing between calls. It returns how many succeeded.
func (s *Service) Batch(ctx context.Context, dishes []menu.Dish, lang string, hooks Hooks) (int, error) {
	translated := 0
	first := true
	for _, d := range dishes {
		if d.Translation != nil || d.LoadingTranslation {
			continue
		}
		if !first {
			if err := s.sleep(ctx, s.pace); err != nil {
				return translated, err
			}
		}
		first = false
		if hooks.Start != nil {
			hooks.Start(d.ID)
		}
		tr, err := s.Translate(ctx, d, lang)
		if err != nil {
			logging.WarnWithContext(s.logger, "dish translation failed", "translation_failed",
				logging.String(logging.FieldItemID, d.ID),
				logging.String("dish_name", d.Name),
				logging.String(logging.FieldScope, string(services.ScopeItem)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "dish left untranslated"),
			)
		} else {
			translated++
		}
		if hooks.Done != nil {
			hooks.Done(d.ID, tr, err)
		}
		if ctx.Err() != nil {
			return translated, ctx.Err()
		}
	}
	return translated, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
