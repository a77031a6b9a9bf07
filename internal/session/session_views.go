package session

import (
	"context"

	"menuviz/internal/analytics"
	"menuviz/internal/billsplit"
	"menuviz/internal/dietary"
	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/speech"
)

// Bill starts a bill from the current dishes.
func (s *Session) Bill() *billsplit.Bill {
	return billsplit.NewBill(s.Dishes())
}

// SplitBill computes the per-person totals for bill and records the split.
func (s *Session) SplitBill(bill *billsplit.Bill) billsplit.Summary {
	summary := bill.Summary()
	s.track(analytics.BillSplit(len(bill.People), summary.GrandTotal, len(bill.Items)))
	return summary
}

// Safety classifies a dish against the saved dietary preferences.
func (s *Session) Safety(id string) (dietary.Verdict, error) {
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	s.mu.Unlock()
	if !ok {
		return dietary.Verdict{}, notFound("safety", id)
	}
	return dietary.Classify(dish.Tags, s.preferences()), nil
}

// SafetyAll classifies every current dish, keyed by id.
func (s *Session) SafetyAll() map[string]dietary.Verdict {
	prefs := s.preferences()
	dishes := s.Dishes()
	out := make(map[string]dietary.Verdict, len(dishes))
	for _, d := range dishes {
		out[d.ID] = dietary.Classify(d.Tags, prefs)
	}
	return out
}

func (s *Session) preferences() dietary.Preferences {
	if s.deps.State == nil {
		return dietary.Preferences{}
	}
	return s.deps.State.Preferences()
}

// SpeechText flattens the current results for reading aloud.
func (s *Session) SpeechText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return speech.Text(s.mode, s.dishes, s.items)
}

// ToggleSpeech starts or stops reading the results aloud and reports
// whether playback is now running.
func (s *Session) ToggleSpeech(ctx context.Context) (bool, error) {
	if s.deps.Speaker == nil {
		return false, services.Wrap(services.ErrConfiguration, "session", "speak", "no speaker configured", nil)
	}
	return s.deps.Speaker.Toggle(ctx, s.SpeechText()), nil
}

// ToggleFavorite adds or removes the dish from favorites and reports
// whether it is now a favorite.
func (s *Session) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	if s.deps.State == nil {
		return false, services.Wrap(services.ErrConfiguration, "session", "favorite", "no state store", nil)
	}
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	s.mu.Unlock()
	if !ok {
		return false, notFound("favorite", id)
	}
	added := s.deps.State.ToggleFavorite(ctx, dish)
	s.track(analytics.FavoriteAction(added, dish.Name))
	return added, nil
}

// Speaking reports whether results are being read aloud.
func (s *Session) Speaking() bool {
	return s.deps.Speaker != nil && s.deps.Speaker.Speaking()
}
