package main

import (
	"encoding/json"
	"strings"
	"testing"

	"menuviz/internal/api"
)

func TestHistoryListLoadDelete(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No saved scans")

	if _, _, err := runCLI(t, []string{"scan", env.imagePath}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list --json: %v", err)
	}
	var hist api.HistoryResponse
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Sessions) != 1 || hist.Sessions[0].Restaurant != "Chez Test" {
		t.Fatalf("unexpected history %+v", hist)
	}
	id := hist.Sessions[0].ID

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, shortID(id))
	requireContains(t, out, "Chez Test")

	if _, _, err := runCLI(t, []string{"reset"}, env.configPath); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, _, err = runCLI(t, []string{"history", "load", id}, env.configPath)
	if err != nil {
		t.Fatalf("history load: %v", err)
	}
	requireContains(t, out, "Soup")

	out, _, err = runCLI(t, []string{"history", "delete", shortID(id)}, env.configPath)
	if err != nil {
		t.Fatalf("history delete: %v", err)
	}
	requireContains(t, out, "Deleted")

	_, _, err = runCLI(t, []string{"history", "delete", id}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestHistoryExportRequiresBucket(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"history", "export"}, env.configPath); err == nil {
		t.Fatal("expected export to fail without export.s3_bucket")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
}
