package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"menuviz/internal/analytics"
	"menuviz/internal/appstate"
	"menuviz/internal/concierge"
	"menuviz/internal/extraction"
	"menuviz/internal/history"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/restaurant"
	"menuviz/internal/services"
)

// SetMode switches between menu and nutrition scanning. It is only allowed
// on the idle screen; setting the current mode is always accepted.
func (s *Session) SetMode(mode menu.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mode {
		return nil
	}
	if s.state != StateIdle {
		return services.Wrap(services.ErrValidation, "session", "set mode",
			fmt.Sprintf("cannot change mode while %s", s.state), nil)
	}
	s.mode = mode
	return nil
}

// Capture runs a full scan of image. On success the collection is replaced,
// one history entry is saved and the session shows results. On failure the
// session shows the error screen and the wrapped error is returned.
func (s *Session) Capture(ctx context.Context, image []byte, mimeType string) error {
	s.mu.Lock()
	if s.state == StateAnalyzing {
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, "session", "capture", "a scan is already running", nil)
	}
	s.epoch++
	epoch := s.epoch
	mode := s.mode
	s.state = StateAnalyzing
	s.errMsg = ""
	s.mu.Unlock()

	s.dispatcher.Reset()
	if s.deps.Speaker != nil {
		s.deps.Speaker.Stop()
	}
	scanID := uuid.NewString()
	ctx = services.WithScanID(ctx, scanID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.String("mode", string(mode)),
		logging.Int("image_bytes", len(image)),
	)

	res, err := s.extract(ctx, mode, image, mimeType)
	if err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			s.state = StateError
			s.errMsg = AnalyzeFailed
		}
		s.mu.Unlock()
		logging.ErrorWithContext(logger, "scan failed", "scan_failed",
			logging.Error(err),
			logging.String(logging.FieldScope, string(services.ScopeScan)),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "no results; reset to start over"),
		)
		s.track(analytics.ErrorOccurred(analytics.ErrorTypeMenuAnalysis, err.Error(), string(mode)))
		return err
	}

	now := s.now()
	var entry history.Session
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, "session", "capture", "scan discarded by reset", nil)
	}
	s.applyResultLocked(res, now, "")
	s.state = StateResults
	count := res.Count()
	if mode == menu.ModeNutrition {
		entry = history.NewNutrition(s.items, now)
	} else {
		entry = history.NewMenu(s.dishes, res.RestaurantName, now)
	}
	detected := s.detected
	dishes := append([]menu.Dish(nil), s.dishes...)
	s.mu.Unlock()

	if st := s.deps.State; st != nil {
		st.AddHistory(ctx, entry)
		st.SetLastImage(ctx, appstate.Image{MimeType: mimeType, Data: image})
	}
	if mode == menu.ModeNutrition {
		s.track(analytics.MenuScanned(count, mode, "", ""))
	} else {
		s.track(analytics.MenuScanned(count, mode, detected, res.RestaurantName))
		s.detectLanguage(epoch, dishes)
	}
	logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.String("mode", string(mode)),
		logging.Int("items", count),
		logging.String("history_id", entry.ID),
	)
	return nil
}

// Refresh re-reads the last captured image and replaces the results with
// fresh ids. It saves no history. A failure leaves the results and their
// queued image work untouched.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateResults {
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, "session", "refresh", "no results to refresh", nil)
	}
	epoch := s.epoch
	mode := s.mode
	s.mu.Unlock()

	var img appstate.Image
	ok := false
	if s.deps.State != nil {
		img, ok = s.deps.State.LastImage()
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, "session", "refresh", "no captured image to refresh", nil)
	}

	res, err := s.extract(ctx, mode, img.Data, img.MimeType)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "refresh failed", "refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "previous results kept"),
		)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return services.Wrap(services.ErrValidation, "session", "refresh", "refresh discarded by reset", nil)
	}
	// Queued work for the old ids is dropped only once new results apply.
	s.dispatcher.Reset()
	s.epoch++
	s.applyResultLocked(res, s.now(), menu.RefreshSuffix)
	return nil
}

// Reset drops pending generation, clears the collection and returns to the
// idle screen. In-flight generations finish against the discarded
// collection and change nothing.
func (s *Session) Reset() {
	dropped := s.dispatcher.Reset()
	if s.deps.Speaker != nil {
		s.deps.Speaker.Stop()
	}
	s.mu.Lock()
	s.epoch++
	s.state = StateIdle
	s.errMsg = ""
	s.dishes = nil
	s.items = nil
	s.restaurant = nil
	s.chat = nil
	s.detected = ""
	s.mu.Unlock()
	s.logger.Info("session reset",
		logging.String(logging.FieldEventType, "session_reset"),
		logging.Int("dropped_tasks", dropped),
	)
}

// LoadHistory shows a saved scan as the current results.
func (s *Session) LoadHistory(id string) (history.Session, error) {
	if s.deps.State == nil {
		return history.Session{}, services.Wrap(services.ErrConfiguration, "session", "load history", "no state store", nil)
	}
	entry, ok := s.deps.State.FindHistory(id)
	if !ok {
		return history.Session{}, services.Wrap(services.ErrNotFound, "session", "load history",
			fmt.Sprintf("history %q not found", id), nil)
	}
	s.dispatcher.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.mode = entry.Mode
	s.state = StateResults
	s.errMsg = ""
	s.detected = ""
	if entry.Mode == menu.ModeNutrition {
		s.items = append([]menu.NutritionItem(nil), entry.Nutrition...)
		s.dishes = nil
		s.restaurant = nil
		s.chat = nil
	} else {
		s.dishes = menu.SnapshotDishes(entry.Dishes)
		s.items = nil
		details := restaurant.FromExtraction(entry.Restaurant, "")
		s.restaurant = &details
		s.chat = concierge.New(s.deps.Chat, s.dishes, s.deps.Logger)
	}
	return entry, nil
}

func (s *Session) extract(ctx context.Context, mode menu.Mode, image []byte, mimeType string) (extraction.Result, error) {
	if s.deps.Extractor == nil {
		return extraction.Result{}, services.Wrap(services.ErrConfiguration, "session", "extract", "no extractor configured", nil)
	}
	return s.deps.Extractor.Extract(ctx, mode, image, mimeType)
}

// applyResultLocked replaces the collection with a formatted extraction and
// seeds the restaurant details and concierge.
func (s *Session) applyResultLocked(res extraction.Result, now time.Time, suffix string) {
	s.detected = ""
	if res.Mode == menu.ModeNutrition {
		s.items = menu.FormatNutrition(res.Items, now, suffix)
		s.dishes = nil
		s.restaurant = nil
		s.chat = nil
		return
	}
	s.dishes = menu.FormatDishes(res.Dishes, now, suffix)
	s.items = nil
	details := restaurant.FromExtraction(res.RestaurantName, res.RestaurantLocation)
	s.restaurant = &details
	s.chat = concierge.New(s.deps.Chat, s.dishes, s.deps.Logger)
}
