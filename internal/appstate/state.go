package appstate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"menuviz/internal/dietary"
	"menuviz/internal/history"
	"menuviz/internal/language"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
)

// Persisted keys.
const (
	KeyPreferences = "menuviz_dietary_prefs"
	KeyHistory     = "menuviz_history"
	KeyFavorites   = "menuviz_favorites"
	KeyLanguage    = "menuviz_language"
	KeyLastImage   = "menuviz_last_image"
)

// KV is the persistent store the state reads and writes.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Image is a captured image kept for refresh.
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type storedImage struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// State holds process-wide preferences, history, favorites and language.
// Every mutation goes through a named method that persists its key. A
// persistence failure is logged and the in-memory change stands.
type State struct {
	mu          sync.RWMutex
	kv          KV
	logger      *slog.Logger
	preferences dietary.Preferences
	history     history.List
	favorites   []menu.Dish
	language    string
	lastImage   *Image
}

// Load reads every key, falling back to defaults for anything missing or
// corrupt. It never fails.
func Load(ctx context.Context, kv KV, defaultLanguage string, logger *slog.Logger) *State {
	s := &State{
		kv:       kv,
		logger:   logging.NewComponentLogger(logger, "appstate"),
		language: language.Default,
	}
	if iso := language.ToISO2(defaultLanguage); language.IsSupported(iso) {
		s.language = iso
	}

	s.loadJSON(ctx, KeyPreferences, &s.preferences)
	s.loadJSON(ctx, KeyHistory, &s.history)
	s.loadJSON(ctx, KeyFavorites, &s.favorites)

	if raw, ok := s.read(ctx, KeyLanguage); ok {
		if iso := language.ToISO2(raw); language.IsSupported(iso) {
			s.language = iso
		} else {
			s.warnCorrupt(KeyLanguage, fmt.Errorf("unsupported language %q", raw))
		}
	}

	var img storedImage
	if s.loadJSON(ctx, KeyLastImage, &img) && img.Data != "" {
		if data, err := base64.StdEncoding.DecodeString(img.Data); err == nil {
			s.lastImage = &Image{MimeType: img.MimeType, Data: data}
		} else {
			s.warnCorrupt(KeyLastImage, err)
		}
	}
	return s
}

func (s *State) read(ctx context.Context, key string) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		logging.WarnWithContext(s.logger, "state key unreadable; using default", "state_load_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory and store file permissions"),
			logging.String(logging.FieldImpact, "default value used"),
		)
		return "", false
	}
	return value, ok && strings.TrimSpace(value) != ""
}

// loadJSON decodes key into target. On corruption target is reset to its
// zero value and false is returned.
func (s *State) loadJSON(ctx context.Context, key string, target any) bool {
	raw, ok := s.read(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.warnCorrupt(key, err)
		switch t := target.(type) {
		case *dietary.Preferences:
			*t = dietary.Preferences{}
		case *history.List:
			*t = nil
		case *[]menu.Dish:
			*t = nil
		case *storedImage:
			*t = storedImage{}
		}
		return false
	}
	return true
}

func (s *State) warnCorrupt(key string, err error) {
	logging.WarnWithContext(s.logger, "state key corrupt; using default", "state_corrupt",
		logging.String("key", key),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the stored value will be replaced on the next update"),
		logging.String(logging.FieldImpact, "default value used"),
	)
}

func (s *State) persist(ctx context.Context, key string, value any) {
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err == nil {
		err = s.kv.Set(ctx, key, string(payload))
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "state not persisted", "state_persist_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "change kept in memory only"),
		)
	}
}

// Preferences returns the dietary preferences.
func (s *State) Preferences() dietary.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.preferences
	p.CustomAllergies = slices.Clone(p.CustomAllergies)
	return p
}

// SetPreferences replaces the dietary preferences.
func (s *State) SetPreferences(ctx context.Context, prefs dietary.Preferences) {
	prefs.CustomAllergies = slices.Clone(prefs.CustomAllergies)
	s.mu.Lock()
	s.preferences = prefs
	s.mu.Unlock()
	s.persist(ctx, KeyPreferences, prefs)
}

// History returns the sessions, newest first.
func (s *State) History() history.List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// AddHistory prepends a session.
func (s *State) AddHistory(ctx context.Context, session history.Session) {
	s.mu.Lock()
	s.history = s.history.Prepend(session)
	snapshot := s.history
	s.mu.Unlock()
	s.persist(ctx, KeyHistory, snapshot)
}

// DeleteHistory removes a session, matched like FindHistory, and reports
// whether it existed.
func (s *State) DeleteHistory(ctx context.Context, id string) bool {
	if entry, ok := s.FindHistory(id); ok {
		id = entry.ID
	}
	s.mu.Lock()
	updated, ok := s.history.Delete(id)
	if ok {
		s.history = updated
	}
	s.mu.Unlock()
	if ok {
		s.persist(ctx, KeyHistory, updated)
	}
	return ok
}

// FindHistory looks a session up by id or unique id prefix.
func (s *State) FindHistory(id string) (history.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Find(id)
}

// Favorites returns saved dishes.
func (s *State) Favorites() []menu.Dish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

// IsFavorite reports whether a dish with name is saved.
func (s *State) IsFavorite(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.favorites, func(d menu.Dish) bool { return d.Name == name })
}

// ToggleFavorite saves or removes a dish by name and reports whether it is
// now saved.
func (s *State) ToggleFavorite(ctx context.Context, dish menu.Dish) bool {
	s.mu.Lock()
	idx := slices.IndexFunc(s.favorites, func(d menu.Dish) bool { return d.Name == dish.Name })
	added := idx < 0
	if added {
		s.favorites = append(slices.Clone(s.favorites), dish.Clean())
	} else {
		s.favorites = slices.Delete(slices.Clone(s.favorites), idx, idx+1)
	}
	snapshot := s.favorites
	s.mu.Unlock()
	s.persist(ctx, KeyFavorites, snapshot)
	return added
}

// Language returns the target language code.
func (s *State) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage validates and stores the target language, returning the
// previous code.
func (s *State) SetLanguage(ctx context.Context, code string) (string, error) {
	lang, ok := language.Find(code)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "appstate", "set language",
			fmt.Sprintf("unsupported language %q", code), nil)
	}
	s.mu.Lock()
	previous := s.language
	s.language = lang.Code
	s.mu.Unlock()
	if s.kv != nil {
		if err := s.kv.Set(ctx, KeyLanguage, lang.Code); err != nil {
			logging.WarnWithContext(s.logger, "language not persisted", "state_persist_failed",
				logging.String("key", KeyLanguage),
				logging.Error(err),
				logging.String(logging.FieldImpact, "change kept in memory only"),
			)
		}
	}
	return previous, nil
}

// LastImage returns the most recent capture.
func (s *State) LastImage() (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastImage == nil {
		return Image{}, false
	}
	return Image{MimeType: s.lastImage.MimeType, Data: slices.Clone(s.lastImage.Data)}, true
}

// SetLastImage keeps a capture for refresh.
func (s *State) SetLastImage(ctx context.Context, img Image) {
	img.Data = slices.Clone(img.Data)
	s.mu.Lock()
	s.lastImage = &img
	s.mu.Unlock()
	s.persist(ctx, KeyLastImage, storedImage{
		MimeType: img.MimeType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	})
}
