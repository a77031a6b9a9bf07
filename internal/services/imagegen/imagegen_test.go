package imagegen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"menuviz/internal/cache"
	"menuviz/internal/services"
	"menuviz/internal/services/imagegen"
)

func TestURLEncodesPromptAndParameters(t *testing.T) {
	client := imagegen.NewClient(imagegen.Config{})
	raw := client.URL("Pad Thai", "rice noodles/shrimp")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if parsed.Host != "image.pollinations.ai" {
		t.Fatalf("unexpected host %q", parsed.Host)
	}
	wantPath := "/prompt/" + imagegen.Prompt("Pad Thai", "rice noodles/shrimp")
	if parsed.Path != wantPath {
		t.Fatalf("unexpected decoded path %q", parsed.Path)
	}
	if strings.Contains(parsed.EscapedPath(), "noodles/shrimp") {
		t.Fatal("slash inside the prompt must be escaped")
	}
	q := parsed.Query()
	checks := map[string]string{
		"width": "768", "height": "768", "model": "turbo",
		"nologo": "true", "enhance": "true",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if q.Get("seed") != "699" {
		t.Errorf("unexpected seed %q", q.Get("seed"))
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	if imagegen.Seed("abc") != 97+98+99 {
		t.Fatalf("unexpected seed %d", imagegen.Seed("abc"))
	}
	if imagegen.Seed("Pad Thai") != imagegen.Seed("Pad Thai") {
		t.Fatal("seed must be stable")
	}
}

func TestGenerateRequiresName(t *testing.T) {
	_, err := imagegen.NewClient(imagegen.Config{}).Generate(context.Background(), "  ", "x")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrefetchValidatesResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		wantErr     bool
	}{
		{"image ok", http.StatusOK, "image/jpeg", false},
		{"server error", http.StatusBadGateway, "image/jpeg", true},
		{"html body", http.StatusOK, "text/html", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("nologo") != "true" {
					t.Errorf("expected query to reach backend")
				}
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("data"))
			}))
			defer server.Close()

			client := imagegen.NewClient(imagegen.Config{BaseURL: server.URL + "/prompt", Prefetch: true})
			ref, err := client.Generate(context.Background(), "Pho", "beef broth")
			if tc.wantErr {
				if !errors.Is(err, services.ErrExternalTool) {
					t.Fatalf("expected external tool error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if !strings.HasPrefix(ref, server.URL+"/prompt/") {
				t.Fatalf("unexpected ref %q", ref)
			}
		})
	}
}

type countingGenerator struct {
	calls int
	err   error
}

func (g *countingGenerator) Generate(_ context.Context, name, description string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "img://" + name + "/" + description, nil
}

func TestCachedGeneratorSharesAssetAcrossDescriptions(t *testing.T) {
	inner := &countingGenerator{}
	gen := imagegen.NewCached(inner, cache.New(nil, cache.ImageNamespace))
	ctx := context.Background()

	first, err := gen.Generate(ctx, "Pad Thai", "with shrimp")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Same normalized name, different description: the cached asset is reused.
	second, err := gen.Generate(ctx, "  pad   thai ", "vegetarian version")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first != second {
		t.Fatalf("expected shared asset, got %q and %q", first, second)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", inner.calls)
	}
}

func TestCachedGeneratorDoesNotCacheFailures(t *testing.T) {
	inner := &countingGenerator{err: errors.New("backend down")}
	gen := imagegen.NewCached(inner, cache.New(nil, cache.ImageNamespace))
	ctx := context.Background()

	if _, err := gen.Generate(ctx, "Pho", ""); err == nil {
		t.Fatal("expected failure")
	}
	inner.err = nil
	if _, err := gen.Generate(ctx, "Pho", ""); err != nil {
		t.Fatalf("retry should reach backend: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 backend calls, got %d", inner.calls)
	}
}
