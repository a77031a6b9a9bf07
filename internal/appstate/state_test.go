package appstate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"menuviz/internal/appstate"
	"menuviz/internal/dietary"
	"menuviz/internal/history"
	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/store"
)

type mapKV struct {
	values  map[string]string
	failSet bool
}

func (m *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	if m.failSet {
		return store.ErrQuotaExceeded
	}
	m.values[key] = value
	return nil
}

func TestLoadFallsBackOnCorruptKeys(t *testing.T) {
	kv := &mapKV{values: map[string]string{
		appstate.KeyPreferences: "{not json",
		appstate.KeyHistory:     `[{"id": 1}]`,
		appstate.KeyFavorites:   "null",
		appstate.KeyLanguage:    "klingon",
		appstate.KeyLastImage:   `{"mime_type":"image/jpeg","data":"%%%"}`,
	}}
	st := appstate.Load(context.Background(), kv, "fr", logging.NewNop())

	if st.Preferences().Active() {
		t.Fatal("corrupt preferences should fall back to empty")
	}
	if len(st.History()) != 0 {
		t.Fatal("corrupt history should fall back to empty")
	}
	if len(st.Favorites()) != 0 {
		t.Fatal("favorites should be empty")
	}
	if st.Language() != "fr" {
		t.Fatalf("expected configured default language, got %q", st.Language())
	}
	if _, ok := st.LastImage(); ok {
		t.Fatal("corrupt image should be dropped")
	}
}

func TestUpdatesPersistAndReload(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "menuviz.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st := appstate.Load(ctx, db, "en", nil)
	st.SetPreferences(ctx, dietary.Preferences{Vegan: true, CustomAllergies: []string{"Sesame"}})
	session := history.NewMenu([]menu.Dish{{ID: "d1", Name: "Soup"}}, "", time.UnixMilli(10))
	st.AddHistory(ctx, session)
	if added := st.ToggleFavorite(ctx, menu.Dish{Name: "Soup", LoadingImage: true}); !added {
		t.Fatal("first toggle should add")
	}
	prev, err := st.SetLanguage(ctx, "de-DE")
	if err != nil || prev != "en" {
		t.Fatalf("SetLanguage = %q, %v", prev, err)
	}
	st.SetLastImage(ctx, appstate.Image{MimeType: "image/png", Data: []byte{1, 2, 3}})

	reloaded := appstate.Load(ctx, db, "en", nil)
	if p := reloaded.Preferences(); !p.Vegan || len(p.CustomAllergies) != 1 {
		t.Fatalf("preferences not reloaded: %+v", p)
	}
	if h := reloaded.History(); len(h) != 1 || h[0].ID != session.ID {
		t.Fatalf("history not reloaded: %+v", h)
	}
	favs := reloaded.Favorites()
	if len(favs) != 1 || favs[0].LoadingImage {
		t.Fatalf("favorites not reloaded clean: %+v", favs)
	}
	if reloaded.Language() != "de" {
		t.Fatalf("language not reloaded: %q", reloaded.Language())
	}
	if img, ok := reloaded.LastImage(); !ok || img.MimeType != "image/png" || len(img.Data) != 3 {
		t.Fatalf("image not reloaded: %+v", img)
	}

	if !reloaded.DeleteHistory(ctx, session.ID) || reloaded.DeleteHistory(ctx, session.ID) {
		t.Fatal("DeleteHistory should succeed once")
	}
	if added := reloaded.ToggleFavorite(ctx, menu.Dish{Name: "Soup"}); added {
		t.Fatal("second toggle should remove")
	}
}

func TestPersistFailureKeepsMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	kv := &mapKV{values: map[string]string{}, failSet: true}
	st := appstate.Load(ctx, kv, "en", nil)

	st.AddHistory(ctx, history.NewNutrition(nil, time.Now()))
	if len(st.History()) != 1 {
		t.Fatal("in-memory history should keep the session")
	}
	if _, ok := kv.values[appstate.KeyHistory]; ok {
		t.Fatal("nothing should be persisted")
	}
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	st := appstate.Load(context.Background(), nil, "en", nil)
	if _, err := st.SetLanguage(context.Background(), "ja"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Language() != "en" {
		t.Fatalf("language changed to %q", st.Language())
	}
}
