package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"menuviz/internal/api"
	"menuviz/internal/testsupport"
)

func TestScanItemsAndFavorite(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"scan", env.imagePath}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Chez Test")
	requireContains(t, out, "Soup")
	requireContains(t, out, "Steak")

	out, _, err = runCLI(t, []string{"items", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("items --json: %v", err)
	}
	var items api.ItemsResponse
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if items.State != "results" || len(items.Dishes) != 2 {
		t.Fatalf("unexpected items %+v", items)
	}

	out, _, err = runCLI(t, []string{"favorite", "steak"}, env.configPath)
	if err != nil {
		t.Fatalf("favorite: %v", err)
	}
	requireContains(t, out, "Steak added to favorites")
	out, _, err = runCLI(t, []string{"favorite", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("favorite again: %v", err)
	}
	requireContains(t, out, "Steak removed from favorites")

	out, _, err = runCLI(t, []string{"reset"}, env.configPath)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "Results cleared")
	out, _, err = runCLI(t, []string{"items"}, env.configPath)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	requireContains(t, out, "No dishes")
}

func TestScanRequiresImageOrCamera(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"scan"}, env.configPath); err == nil {
		t.Fatal("expected error without image path")
	}
	if _, _, err := runCLI(t, []string{"scan", "--camera", env.imagePath}, env.configPath); err == nil {
		t.Fatal("expected error for image path with --camera")
	}
}

func TestCommandsHintWhenDaemonStopped(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--addr", "127.0.0.1:1", "items"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "menuviz start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "menu.jpg")
	testsupport.WriteImage(t, jpg, 64)
	data, mimeType, err := readImage(jpg)
	if err != nil {
		t.Fatalf("readImage: %v", err)
	}
	if mimeType != "image/jpeg" || len(data) != 64 {
		t.Fatalf("readImage = %d bytes, %q", len(data), mimeType)
	}

	sniffed := filepath.Join(dir, "photo")
	testsupport.WriteImage(t, sniffed, 32)
	if _, mimeType, err := readImage(sniffed); err != nil || mimeType != "image/jpeg" {
		t.Fatalf("sniffed readImage = %q, %v", mimeType, err)
	}

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if _, _, err := readImage(text); err == nil {
		t.Fatal("expected error for non-image file")
	}

	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if _, _, err := readImage(empty); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestSettledImages(t *testing.T) {
	items := &api.ItemsResponse{Dishes: []api.Dish{
		{},
		{},
		{},
	}}
	items.Dishes[0].GeneratedImageURL = "data:image/png;base64,AA"
	items.Dishes[1].GenerationFailed = true
	if got := settledImages(items); got != 2 {
		t.Fatalf("settledImages = %d", got)
	}
}
