package testsupport

import (
	"context"
	"testing"

	"menuviz/internal/appstate"
	"menuviz/internal/config"
	"menuviz/internal/store"
)

// MustOpenStore opens the persistent store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewState loads application state from the store using the configured
// default language.
func NewState(t testing.TB, cfg *config.Config, st *store.Store) *appstate.State {
	t.Helper()

	return appstate.Load(context.Background(), st, cfg.Translation.DefaultLanguage, nil)
}
