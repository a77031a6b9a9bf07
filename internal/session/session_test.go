package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"menuviz/internal/analytics"
	"menuviz/internal/appstate"
	"menuviz/internal/cache"
	"menuviz/internal/dietary"
	"menuviz/internal/extraction"
	"menuviz/internal/menu"
	"menuviz/internal/recipe"
	"menuviz/internal/services"
	"menuviz/internal/services/llm"
	"menuviz/internal/store"
	"menuviz/internal/translate"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	res   extraction.Result
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, mode menu.Mode, _ []byte, _ string) (extraction.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return extraction.Result{}, f.err
	}
	res := f.res
	res.Mode = mode
	return res, nil
}

type fakeImages struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
}

func (f *fakeImages) Generate(_ context.Context, name, _ string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	f.mu.Unlock()
	if name == "Bad" {
		return "", errors.New("backend 500")
	}
	return "https://img.test/" + strings.ToLower(name), nil
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, user)
	f.mu.Unlock()
	switch {
	case strings.Contains(user, "Detect the language"):
		return `{"language":"fr"}`, nil
	case strings.Contains(user, "Translate"):
		return `{"translatedName":"Onion soup","pronunciation":"x","simplifiedPronunciation":"x","culturalContext":"c","ingredientExplanations":["onion"],"originCountry":"France","detectedLanguage":"fr"}`, nil
	default:
		return `{"ingredients":["onion"],"instructions":["cook"],"prepTime":"5 mins","cookTime":"30 mins","shoppingList":["onion"],"difficulty":"easy"}`, nil
	}
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, error) {
	return fmt.Sprintf("reply to %d messages", len(messages)), nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *recordingTracker) Track(_ context.Context, ev analytics.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingTracker) named(name string) []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []analytics.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	sess      *Session
	extractor *fakeExtractor
	images    *fakeImages
	llm       *fakeLLM
	tracker   *recordingTracker
	state     *appstate.State
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	return newHarnessWithOptions(t, nil, names...)
}

func newHarnessWithOptions(t *testing.T, opts []Option, names ...string) *harness {
	t.Helper()
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "menuviz.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	raw := make([]menu.RawDish, 0, len(names))
	for _, n := range names {
		raw = append(raw, menu.RawDish{Name: n, Description: n + " desc", Price: "$10", Tags: []string{"Spicy"}})
	}
	h := &harness{
		extractor: &fakeExtractor{res: extraction.Result{RestaurantName: "Chez Test", RestaurantLocation: "Paris", Dishes: raw}},
		images:    &fakeImages{},
		llm:       &fakeLLM{},
		tracker:   &recordingTracker{},
		state:     appstate.Load(context.Background(), db, "en", nil),
	}
	h.sess = New(Deps{
		Extractor:  h.extractor,
		Images:     h.images,
		Translator: translate.New(h.llm, cache.New(nil, cache.TranslationNamespace), translate.WithPace(0)),
		Recipes:    recipe.New(h.llm),
		Chat:       h.llm,
		State:      h.state,
		Tracker:    h.tracker,
	}, append([]Option{WithReleaseDelay(0), WithClock(func() time.Time { return time.UnixMilli(1700000000000) })}, opts...)...)
	return h
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestCaptureFormatsAndSavesOneHistoryEntry(t *testing.T) {
	h := newHarness(t, "Soup", "Salad", "Steak")
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	waitIdle(t, h.sess)

	snap := h.sess.Snapshot()
	if snap.State != StateResults || len(snap.Dishes) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	seen := map[string]bool{}
	for _, d := range snap.Dishes {
		if seen[d.ID] {
			t.Fatalf("duplicate id %s", d.ID)
		}
		seen[d.ID] = true
	}
	if snap.Restaurant == nil || snap.Restaurant.Summary != "Menu from Chez Test" || snap.Restaurant.MapLink == "" {
		t.Fatalf("unexpected restaurant %+v", snap.Restaurant)
	}
	hist := h.state.History()
	if len(hist) != 1 || len(hist[0].Dishes) != 3 || hist[0].Summary != "Soup... Menu" {
		t.Fatalf("unexpected history %+v", hist)
	}
	if img, ok := h.state.LastImage(); !ok || img.MimeType != "image/jpeg" {
		t.Fatal("capture should keep the image for refresh")
	}
	if got := h.tracker.named(analytics.EventMenuScanned); len(got) != 1 || got[0].Params["dish_count"] != 3 {
		t.Fatalf("menu_scanned events = %+v", got)
	}
	if snap.DetectedLanguage != "fr" || !snap.SuggestTranslation {
		t.Fatalf("expected detected french menu, got %q", snap.DetectedLanguage)
	}
}

func TestCaptureFailureShowsError(t *testing.T) {
	h := newHarness(t, "Soup")
	h.extractor.err = services.Wrap(services.ErrMalformedPayload, "extraction", "extract", "bad json", nil)
	err := h.sess.Capture(context.Background(), jpeg, "image/jpeg")
	if !errors.Is(err, services.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
	snap := h.sess.Snapshot()
	if snap.State != StateError || snap.Error != AnalyzeFailed {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(h.state.History()) != 0 {
		t.Fatal("failed scan must not be saved")
	}
	events := h.tracker.named(analytics.EventErrorOccurred)
	if len(events) != 1 || events[0].Params["error_type"] != analytics.ErrorTypeMenuAnalysis || events[0].Params["context"] != "menu" {
		t.Fatalf("unexpected error events %+v", events)
	}
	h.sess.Reset()
	if h.sess.State() != StateIdle {
		t.Fatal("reset should return to idle")
	}
}

func TestVisibilityEnqueuesOnceAndFailureIsLocal(t *testing.T) {
	h := newHarness(t, "A", "B", "Bad", "D", "E")
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	for _, d := range h.sess.Dishes() {
		if queued, err := h.sess.NotifyVisible(d.ID); err != nil || !queued {
			t.Fatalf("NotifyVisible(%s) = %v, %v", d.Name, queued, err)
		}
	}
	waitIdle(t, h.sess)

	var badID string
	for _, d := range h.sess.Dishes() {
		if d.LoadingImage {
			t.Fatalf("%s still loading", d.Name)
		}
		if d.Name == "Bad" {
			badID = d.ID
			if !d.GenerationFailed || d.GeneratedImageURL != "" {
				t.Fatalf("Bad should be failed: %+v", d)
			}
			continue
		}
		if d.GenerationFailed || d.GeneratedImageURL == "" {
			t.Fatalf("%s should have an image: %+v", d.Name, d)
		}
		if queued, _ := h.sess.NotifyVisible(d.ID); queued {
			t.Fatalf("%s has an image and must not be queued again", d.Name)
		}
	}
	if queued, _ := h.sess.NotifyVisible(badID); queued {
		t.Fatal("failed dish waits for a manual retry")
	}
	if queued, err := h.sess.RequestImage(badID); err != nil || !queued {
		t.Fatalf("RequestImage = %v, %v", queued, err)
	}
	waitIdle(t, h.sess)
	if h.images.calls["Bad"] != 2 || h.images.calls["A"] != 1 {
		t.Fatalf("unexpected calls %v", h.images.calls)
	}
	if _, err := h.sess.NotifyVisible("missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := len(h.tracker.named(analytics.EventImageGenerated)); got != 4 {
		t.Fatalf("image_generated events = %d", got)
	}
}

func TestResetDiscardsInFlightResults(t *testing.T) {
	h := newHarness(t, "Soup")
	h.images.gate = make(chan struct{})
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	id := h.sess.Dishes()[0].ID
	if _, err := h.sess.NotifyVisible(id); err != nil {
		t.Fatalf("NotifyVisible: %v", err)
	}
	h.sess.Reset()
	close(h.images.gate)
	waitIdle(t, h.sess)

	snap := h.sess.Snapshot()
	if snap.State != StateIdle || len(snap.Dishes) != 0 {
		t.Fatalf("late completion leaked into reset session: %+v", snap)
	}
}

func TestSetModeOnlyWhileIdle(t *testing.T) {
	h := newHarness(t, "Soup")
	if err := h.sess.SetMode(menu.ModeNutrition); err != nil {
		t.Fatalf("SetMode idle: %v", err)
	}
	if err := h.sess.SetMode(menu.ModeMenu); err != nil {
		t.Fatalf("SetMode back: %v", err)
	}
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if err := h.sess.SetMode(menu.ModeNutrition); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNutritionScan(t *testing.T) {
	h := newHarness(t)
	h.extractor.res.Items = []menu.NutritionItem{{Name: "Apple", Calories: "95 kcal"}, {Name: "Banana", Calories: "105 kcal"}}
	if err := h.sess.SetMode(menu.ModeNutrition); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	waitIdle(t, h.sess)
	items := h.sess.Nutrition()
	if len(items) != 2 || !strings.HasPrefix(items[0].ID, "nutri-") {
		t.Fatalf("unexpected items %+v", items)
	}
	if h.state.History()[0].Summary != "Apple... Scan" {
		t.Fatalf("unexpected summary %q", h.state.History()[0].Summary)
	}
	if _, err := h.sess.Ask(context.Background(), "hi"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("nutrition scans have no concierge, got %v", err)
	}
	if got := h.sess.SpeechText(); got != "Here is the nutrition analysis. Apple, 95 kcal. Banana, 105 kcal." {
		t.Fatalf("SpeechText = %q", got)
	}
}

func TestRefreshKeepsHistoryAndRenamesIDs(t *testing.T) {
	h := newHarness(t, "Soup", "Salad")
	if err := h.sess.Refresh(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("refresh without results should fail, got %v", err)
	}
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if err := h.sess.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	for _, d := range h.sess.Dishes() {
		if !strings.HasSuffix(d.ID, menu.RefreshSuffix) {
			t.Fatalf("refreshed id %q lacks suffix", d.ID)
		}
	}
	if len(h.state.History()) != 1 {
		t.Fatal("refresh must not add history")
	}

	h.extractor.err = errors.New("offline")
	before := h.sess.Dishes()
	if err := h.sess.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	after := h.sess.Dishes()
	if len(after) != len(before) || after[0].ID != before[0].ID || h.sess.State() != StateResults {
		t.Fatal("failed refresh must leave results untouched")
	}
}

func TestFailedRefreshKeepsQueuedImages(t *testing.T) {
	h := newHarnessWithOptions(t, []Option{WithConcurrency(1)}, "A", "B")
	h.images.gate = make(chan struct{})
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	for _, d := range h.sess.Dishes() {
		if queued, err := h.sess.NotifyVisible(d.ID); err != nil || !queued {
			t.Fatalf("NotifyVisible(%s) = %v, %v", d.Name, queued, err)
		}
	}

	h.extractor.err = errors.New("offline")
	if err := h.sess.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	for _, d := range h.sess.Dishes() {
		if !h.sess.dispatcher.Active(d.ID) {
			t.Fatalf("%s lost its queued image task", d.Name)
		}
	}

	close(h.images.gate)
	waitIdle(t, h.sess)
	for _, d := range h.sess.Dishes() {
		if d.LoadingImage || d.GeneratedImageURL == "" {
			t.Fatalf("%s should have settled with an image: %+v", d.Name, d)
		}
	}
}

func TestRetryWhileSlotHeldLeavesDishUntouched(t *testing.T) {
	h := newHarnessWithOptions(t, []Option{WithReleaseDelay(time.Hour)}, "Bad")
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	id := h.sess.Dishes()[0].ID
	if queued, err := h.sess.NotifyVisible(id); err != nil || !queued {
		t.Fatalf("NotifyVisible = %v, %v", queued, err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !h.sess.Dishes()[0].GenerationFailed {
		if time.Now().After(deadline) {
			t.Fatal("generation never settled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if queued, err := h.sess.RequestImage(id); err != nil || queued {
		t.Fatalf("RequestImage while slot held = %v, %v", queued, err)
	}
	d := h.sess.Dishes()[0]
	if d.LoadingImage || !d.GenerationFailed {
		t.Fatalf("dish state changed by rejected retry: %+v", d)
	}
	if got := h.sess.Snapshot().Dispatch.Pending; got != 0 {
		t.Fatalf("pending = %d", got)
	}
}

func TestWaitDropsAbandonedIdleWaiter(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.sess.background(func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.sess.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	h.sess.mu.Lock()
	left := len(h.sess.idle)
	h.sess.mu.Unlock()
	if left != 0 {
		t.Fatalf("abandoned idle waiters kept: %d", left)
	}
	close(release)
	waitIdle(t, h.sess)
}

func TestTranslateRecipeAndChat(t *testing.T) {
	h := newHarness(t, "Soupe a l'oignon")
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	waitIdle(t, h.sess)
	id := h.sess.Dishes()[0].ID

	tr, err := h.sess.Translate(context.Background(), id)
	if err != nil || tr.TranslatedName != "Onion soup" {
		t.Fatalf("Translate = %+v, %v", tr, err)
	}
	if d := h.sess.Dishes()[0]; d.Translation == nil || d.LoadingTranslation {
		t.Fatalf("translation not stored: %+v", d)
	}

	r, err := h.sess.Recipe(context.Background(), id)
	if err != nil || r.Difficulty != recipe.Easy {
		t.Fatalf("Recipe = %+v, %v", r, err)
	}
	calls := len(h.llm.prompts)
	if _, err := h.sess.Recipe(context.Background(), id); err != nil || len(h.llm.prompts) != calls {
		t.Fatal("existing recipe should be returned without a call")
	}

	reply, err := h.sess.Ask(context.Background(), "Is it vegan?")
	if err != nil || reply != "reply to 2 messages" {
		t.Fatalf("Ask = %q, %v", reply, err)
	}
	if got := h.tracker.named(analytics.EventChatMessageSent); len(got) != 1 || got[0].Params["message_count"] != 1 {
		t.Fatalf("chat events = %+v", got)
	}
	if got := h.tracker.named(analytics.EventRecipeGenerated); len(got) != 1 || got[0].Params["difficulty"] != "Easy" {
		t.Fatalf("recipe events = %+v", got)
	}
}

func TestSetLanguageRetranslates(t *testing.T) {
	h := newHarness(t, "Soup", "Salad")
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if _, err := h.sess.TranslateAll(context.Background()); err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	prev, err := h.sess.SetLanguage(context.Background(), "de")
	if err != nil || prev != "en" {
		t.Fatalf("SetLanguage = %q, %v", prev, err)
	}
	waitIdle(t, h.sess)
	for _, d := range h.sess.Dishes() {
		if d.Translation == nil {
			t.Fatalf("%s should be re-translated", d.Name)
		}
	}
	if _, err := h.sess.SetLanguage(context.Background(), "xx"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := h.tracker.named(analytics.EventLanguageChanged); len(got) != 1 || got[0].Params["to_language"] != "de" {
		t.Fatalf("language events = %+v", got)
	}
}

func TestFavoritesSafetyBillAndHistory(t *testing.T) {
	h := newHarness(t, "Prawn Curry", "Rice")
	h.extractor.res.Dishes[0].Tags = []string{"Shellfish", "Spicy"}
	if err := h.sess.Capture(context.Background(), jpeg, "image/jpeg"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	dishes := h.sess.Dishes()

	h.state.SetPreferences(context.Background(), dietary.Preferences{AvoidShellfish: true})
	v, err := h.sess.Safety(dishes[0].ID)
	if err != nil || v.Status != dietary.StatusUnsafe || !strings.Contains(v.Message, "Shellfish") {
		t.Fatalf("Safety = %+v, %v", v, err)
	}

	added, err := h.sess.ToggleFavorite(context.Background(), dishes[1].ID)
	if err != nil || !added || !h.state.IsFavorite("Rice") {
		t.Fatalf("ToggleFavorite = %v, %v", added, err)
	}

	bill := h.sess.Bill()
	if len(bill.Items) != 2 {
		t.Fatalf("bill items = %d", len(bill.Items))
	}
	if err := bill.Assign(bill.Items[0].ID, bill.People[0].ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	summary := h.sess.SplitBill(bill)
	if summary.GrandTotal <= 10 {
		t.Fatalf("expected tip on top of $10, got %v", summary.GrandTotal)
	}
	if len(h.tracker.named(analytics.EventBillSplit)) != 1 {
		t.Fatal("bill split should be tracked")
	}

	entryID := h.state.History()[0].ID
	h.sess.Reset()
	entry, err := h.sess.LoadHistory(entryID)
	if err != nil || entry.Len() != 2 {
		t.Fatalf("LoadHistory = %+v, %v", entry, err)
	}
	snap := h.sess.Snapshot()
	if snap.State != StateResults || len(snap.Dishes) != 2 || snap.Dishes[0].GeneratedImageURL != "" {
		t.Fatalf("unexpected loaded snapshot %+v", snap)
	}
	if _, err := h.sess.LoadHistory("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
