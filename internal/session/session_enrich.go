package session

import (
	"context"
	"strings"

	"menuviz/internal/analytics"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/restaurant"
	"menuviz/internal/services"
	"menuviz/internal/translate"
)

// Translate returns the dish's translation into the current language,
// requesting one when the dish has none.
func (s *Session) Translate(ctx context.Context, id string) (menu.Translation, error) {
	if s.deps.Translator == nil {
		return menu.Translation{}, services.Wrap(services.ErrConfiguration, "session", "translate", "no translator configured", nil)
	}
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	if !ok {
		s.mu.Unlock()
		return menu.Translation{}, notFound("translate", id)
	}
	if dish.Translation != nil {
		s.mu.Unlock()
		return *dish.Translation, nil
	}
	s.patchDishLocked(id, menu.DishPatch{LoadingTranslation: menu.Flag(true)})
	s.mu.Unlock()

	lang := s.language()
	tr, err := s.deps.Translator.Translate(services.WithItemID(ctx, id), dish, lang)
	if err != nil {
		s.patchDish(id, menu.DishPatch{LoadingTranslation: menu.Flag(false)})
		s.track(analytics.ErrorOccurred(analytics.ErrorTypeTranslation, err.Error(), dish.Name))
		return menu.Translation{}, err
	}
	s.patchDish(id, menu.DishPatch{Translation: &tr, LoadingTranslation: menu.Flag(false)})
	s.track(analytics.DishTranslated(dish.Name, tr.DetectedLanguage, lang, false))
	return tr, nil
}

// TranslateAll translates every dish that has no translation yet, one at a
// time. It returns how many were translated.
func (s *Session) TranslateAll(ctx context.Context) (int, error) {
	if s.deps.Translator == nil {
		return 0, services.Wrap(services.ErrConfiguration, "session", "translate all", "no translator configured", nil)
	}
	dishes := s.Dishes()
	lang := s.language()
	names := make(map[string]string, len(dishes))
	for _, d := range dishes {
		names[d.ID] = d.Name
	}
	return s.deps.Translator.Batch(ctx, dishes, lang, translate.Hooks{
		Start: func(id string) {
			s.patchDish(id, menu.DishPatch{LoadingTranslation: menu.Flag(true)})
		},
		Done: func(id string, tr menu.Translation, err error) {
			if err != nil {
				s.patchDish(id, menu.DishPatch{LoadingTranslation: menu.Flag(false)})
				s.track(analytics.ErrorOccurred(analytics.ErrorTypeTranslation, err.Error(), names[id]))
				return
			}
			s.patchDish(id, menu.DishPatch{Translation: &tr, LoadingTranslation: menu.Flag(false)})
		},
	})
}

// SetLanguage changes the target language. When results are showing, every
// translation is cleared and the menu is re-translated in the background.
func (s *Session) SetLanguage(ctx context.Context, code string) (string, error) {
	if s.deps.State == nil {
		return "", services.Wrap(services.ErrConfiguration, "session", "set language", "no state store", nil)
	}
	prev, err := s.deps.State.SetLanguage(ctx, code)
	if err != nil {
		return "", err
	}
	next := s.deps.State.Language()
	s.track(analytics.LanguageChanged(prev, next))

	s.mu.Lock()
	hasDishes := len(s.dishes) > 0
	for _, d := range s.dishes {
		s.patchDishLocked(d.ID, menu.DishPatch{ClearTranslation: true})
	}
	s.mu.Unlock()

	if hasDishes && s.deps.Translator != nil {
		s.background(func(bgCtx context.Context) {
			if _, err := s.TranslateAll(bgCtx); err != nil && bgCtx.Err() == nil {
				logging.WarnWithContext(s.logger, "re-translation stopped", "translate_all_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, services.Hint(err)),
					logging.String(logging.FieldImpact, "some dishes left untranslated"),
				)
			}
		})
	}
	return prev, nil
}

// detectLanguage guesses the menu language in the background and records it
// when the scan is still current.
func (s *Session) detectLanguage(epoch uint64, dishes []menu.Dish) {
	if s.deps.Translator == nil || len(dishes) == 0 {
		return
	}
	s.background(func(ctx context.Context) {
		lang, err := s.deps.Translator.DetectLanguage(ctx, dishes)
		if err != nil {
			s.logger.Debug("menu language detection failed", logging.Error(err))
			return
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.detected = lang
		}
		s.mu.Unlock()
	})
}

// Recipe returns the dish's recipe, generating it when missing.
func (s *Session) Recipe(ctx context.Context, id string) (menu.Recipe, error) {
	if s.deps.Recipes == nil {
		return menu.Recipe{}, services.Wrap(services.ErrConfiguration, "session", "recipe", "no recipe service configured", nil)
	}
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	if !ok {
		s.mu.Unlock()
		return menu.Recipe{}, notFound("recipe", id)
	}
	if dish.Recipe != nil {
		s.mu.Unlock()
		return *dish.Recipe, nil
	}
	if dish.LoadingRecipe {
		s.mu.Unlock()
		return menu.Recipe{}, services.Wrap(services.ErrValidation, "session", "recipe", "recipe already requested", nil)
	}
	s.patchDishLocked(id, menu.DishPatch{LoadingRecipe: menu.Flag(true)})
	s.mu.Unlock()

	r, _, err := s.deps.Recipes.ForDish(services.WithItemID(ctx, id), dish)
	if err != nil {
		s.patchDish(id, menu.DishPatch{LoadingRecipe: menu.Flag(false)})
		s.track(analytics.ErrorOccurred(analytics.ErrorTypeRecipe, err.Error(), dish.Name))
		return menu.Recipe{}, err
	}
	s.patchDish(id, menu.DishPatch{Recipe: &r, LoadingRecipe: menu.Flag(false)})
	s.track(analytics.RecipeGenerated(dish.Name, r.Difficulty))
	return r, nil
}

// Ask sends a question to the concierge for the current menu and returns
// the reply.
func (s *Session) Ask(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "session", "ask", "message is empty", nil)
	}
	if s.deps.Chat == nil {
		return "", services.Wrap(services.ErrConfiguration, "session", "ask", "no chat backend configured", nil)
	}
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat == nil {
		return "", services.Wrap(services.ErrValidation, "session", "ask", "no menu to chat about", nil)
	}
	s.track(analytics.ChatMessageSent(len(chat.Turns()) + 1))
	return chat.Ask(ctx, text), nil
}

// LookupRestaurant asks the text model about the restaurant's reputation
// and stores the result.
func (s *Session) LookupRestaurant(ctx context.Context) (restaurant.Details, error) {
	s.mu.Lock()
	if s.restaurant == nil || s.restaurant.Name == "" {
		s.mu.Unlock()
		return restaurant.Details{}, services.Wrap(services.ErrValidation, "session", "lookup restaurant", "restaurant name unknown", nil)
	}
	current := *s.restaurant
	epoch := s.epoch
	s.mu.Unlock()

	if s.deps.Chat == nil {
		return current, services.Wrap(services.ErrConfiguration, "session", "lookup restaurant", "no chat backend configured", nil)
	}
	details := restaurant.Lookup(ctx, s.deps.Chat, current.Name, current.Location)
	s.mu.Lock()
	if s.epoch == epoch {
		s.restaurant = &details
	}
	s.mu.Unlock()
	return details, nil
}
