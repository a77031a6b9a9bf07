package main

import (
	"context"
	"testing"

	"menuviz/internal/cache"
	"menuviz/internal/store"
	"menuviz/internal/testsupport"
)

func TestCacheStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := st.Set(ctx, cache.ImageNamespace+"soup", "data:image/png;base64,AA"); err != nil {
		t.Fatalf("Put image: %v", err)
	}
	if err := st.Set(ctx, cache.TranslationNamespace+"fr:soup", `{}`); err != nil {
		t.Fatalf("Put translation: %v", err)
	}
	st.Close()

	configPath := t.TempDir() + "/config.toml"
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"cache", "stats"}, configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "images")
	requireContains(t, out, "translations")
	requireContains(t, out, "Quota:")

	out, _, err = runCLI(t, []string{"cache", "clear", "images"}, configPath)
	if err != nil {
		t.Fatalf("cache clear images: %v", err)
	}
	requireContains(t, out, "Removed 1 images entry")

	out, _, err = runCLI(t, []string{"cache", "clear"}, configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 0 images entries")
	requireContains(t, out, "Removed 1 translations entry")

	if _, _, err := runCLI(t, []string{"cache", "clear", "recipes"}, configPath); err == nil {
		t.Fatal("expected error for unknown cache")
	}

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	for _, target := range cacheTargets {
		usage, err := reopened.Usage(ctx, target.prefix)
		if err != nil {
			t.Fatalf("Usage: %v", err)
		}
		if usage.Keys != 0 {
			t.Fatalf("expected empty %s cache, got %d keys", target.name, usage.Keys)
		}
	}
}

func TestPlural(t *testing.T) {
	if plural(1, "y", "ies") != "y" || plural(2, "y", "ies") != "ies" || plural(0, "y", "ies") != "ies" {
		t.Fatal("unexpected plural forms")
	}
}
