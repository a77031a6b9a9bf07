package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"menuviz/internal/analytics"
	"menuviz/internal/appstate"
	"menuviz/internal/concierge"
	"menuviz/internal/dispatch"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/recipe"
	"menuviz/internal/restaurant"
	"menuviz/internal/services/imagegen"
	"menuviz/internal/speech"
	"menuviz/internal/translate"
)

// Deps are the collaborators a session drives. Images, Translator, Recipes,
// Chat, Tracker and Speaker may be nil; the matching features then report a
// configuration error or do nothing.
type Deps struct {
	Extractor  Extractor
	Images     imagegen.Generator
	Translator *translate.Service
	Recipes    *recipe.Service
	Chat       concierge.Chatter
	State      *appstate.State
	Tracker    analytics.Tracker
	Speaker    *speech.Speaker
	Logger     *slog.Logger
}

// Option customizes a session.
type Option func(*options)

type options struct {
	ctx          context.Context
	concurrency  int
	releaseDelay time.Duration
	now          func() time.Time
}

// WithContext sets the context used for image generation and background
// work. Cancelling it stops that work.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithConcurrency sets the image dispatcher cap.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithReleaseDelay sets the dispatcher slot grace period.
func WithReleaseDelay(d time.Duration) Option {
	return func(o *options) { o.releaseDelay = d }
}

// WithClock replaces time.Now for ids and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Session is one live scan and everything derived from it.
type Session struct {
	deps       Deps
	logger     *slog.Logger
	tracker    analytics.Tracker
	ctx        context.Context
	now        func() time.Time
	dispatcher *dispatch.Dispatcher

	mu         sync.Mutex
	epoch      uint64
	state      State
	mode       menu.Mode
	errMsg     string
	dishes     []menu.Dish
	items      []menu.NutritionItem
	restaurant *restaurant.Details
	chat       *concierge.Conversation
	detected   string
	running    int
	idle       []chan struct{}
}

// New builds an idle menu-mode session.
func New(deps Deps, opts ...Option) *Session {
	o := options{
		ctx:          context.Background(),
		concurrency:  dispatch.DefaultConcurrency,
		releaseDelay: dispatch.DefaultReleaseDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = analytics.Nop{}
	}
	s := &Session{
		deps:    deps,
		logger:  logging.NewComponentLogger(deps.Logger, "session"),
		tracker: tracker,
		ctx:     o.ctx,
		now:     o.now,
		state:   StateIdle,
		mode:    menu.ModeMenu,
	}
	s.dispatcher = dispatch.New(s.generateImage, s.settleImage,
		dispatch.WithConcurrency(o.concurrency),
		dispatch.WithReleaseDelay(o.releaseDelay),
		dispatch.WithContext(o.ctx),
		dispatch.WithLogger(deps.Logger),
	)
	return s
}

// State returns the current screen.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the scan mode.
func (s *Session) Mode() menu.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Dishes returns a copy of the current dishes.
func (s *Session) Dishes() []menu.Dish {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]menu.Dish(nil), s.dishes...)
}

// Nutrition returns a copy of the current nutrition items.
func (s *Session) Nutrition() []menu.NutritionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]menu.NutritionItem(nil), s.items...)
}

// Snapshot returns a consistent copy of everything rendered.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:            s.state,
		Mode:             s.mode,
		Error:            s.errMsg,
		Dishes:           append([]menu.Dish{}, s.dishes...),
		Nutrition:        append([]menu.NutritionItem{}, s.items...),
		DetectedLanguage: s.detected,
		Chat:             []concierge.Turn{},
	}
	if s.restaurant != nil {
		details := *s.restaurant
		snap.Restaurant = &details
	}
	chat := s.chat
	s.mu.Unlock()

	if chat != nil {
		snap.Chat = chat.Turns()
	}
	snap.Language = s.language()
	snap.SuggestTranslation = snap.DetectedLanguage != "" &&
		snap.DetectedLanguage != "en" && snap.DetectedLanguage != snap.Language
	snap.Dispatch = s.dispatcher.Stats()
	return snap
}

// Wait blocks until the image dispatcher is idle and background work such
// as re-translation has finished, or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.running > 0 {
		ch := make(chan struct{})
		s.idle = append(s.idle, ch)
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			s.mu.Lock()
			if i := slices.Index(s.idle, ch); i >= 0 {
				s.idle = slices.Delete(s.idle, i, i+1)
			}
			s.mu.Unlock()
			return ctx.Err()
		}
	} else {
		s.mu.Unlock()
	}
	return s.dispatcher.Wait(ctx)
}

func (s *Session) language() string {
	if s.deps.State == nil {
		return "en"
	}
	return s.deps.State.Language()
}

func (s *Session) track(event analytics.Event) {
	s.tracker.Track(s.ctx, event)
}

// background runs fn on the session context and counts it for Wait.
func (s *Session) background(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.running++
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			s.running--
			if s.running == 0 {
				for _, ch := range s.idle {
					close(ch)
				}
				s.idle = nil
			}
			s.mu.Unlock()
		}()
		fn(s.ctx)
	}()
}

// patchDish applies patch to the dish with id in the current collection.
func (s *Session) patchDish(id string, patch menu.DishPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchDishLocked(id, patch)
}

func (s *Session) patchDishLocked(id string, patch menu.DishPatch) bool {
	dishes, ok := menu.MergeDish(s.dishes, id, patch)
	if ok {
		s.dishes = dishes
	}
	return ok
}
