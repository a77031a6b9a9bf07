package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string, inspect func(map[string]any)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if inspect != nil {
			var req map[string]any
			if err := json.Unmarshal(body, &req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			inspect(req)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "```json\n{\"ok\":true}\n```", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status code, got %d (%v)", code, ok)
	}
}

func TestCompleteJSONSendsHeadersAndFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got != "https://menuviz.local" {
			t.Errorf("unexpected referer %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "MenuViz" {
			t.Errorf("unexpected title %q", got)
		}
		completionHandler(t, `{"a":1}`, func(req map[string]any) {
			format, _ := req["response_format"].(map[string]any)
			if format["type"] != "json_object" {
				t.Errorf("expected json_object response format, got %v", req["response_format"])
			}
		})(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "m", Referer: "https://menuviz.local", Title: "MenuViz"})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"a":1}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestCompleteVisionJSONSendsImagePart(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, `{"dishes":[]}`, func(req map[string]any) {
		messages, _ := req["messages"].([]any)
		if len(messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(messages))
			return
		}
		user, _ := messages[1].(map[string]any)
		parts, _ := user["content"].([]any)
		if len(parts) != 2 {
			t.Errorf("expected text and image parts, got %v", user["content"])
			return
		}
		image, _ := parts[1].(map[string]any)
		if image["type"] != "image_url" {
			t.Errorf("expected image_url part, got %v", image["type"])
		}
		urlField, _ := image["image_url"].(map[string]any)
		if u, _ := urlField["url"].(string); !strings.HasPrefix(u, "data:image/png;base64,") {
			t.Errorf("unexpected data uri %q", u)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "vision"})
	if _, err := client.CompleteVisionJSON(context.Background(), "extract", "menu please", []byte{0x89, 'P', 'N', 'G'}, "image/png"); err != nil {
		t.Fatalf("CompleteVisionJSON: %v", err)
	}
}

func TestCompleteVisionJSONRequiresImage(t *testing.T) {
	client := NewClient(Config{APIKey: "key", BaseURL: "http://127.0.0.1:0"})
	if _, err := client.CompleteVisionJSON(context.Background(), "extract", "", nil, "image/png"); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestChatSendsTranscriptWithoutJSONFormat(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "Try the **curry**.", func(req map[string]any) {
		if _, ok := req["response_format"]; ok {
			t.Errorf("chat must not force json output")
		}
		messages, _ := req["messages"].([]any)
		if len(messages) != 3 {
			t.Errorf("expected full transcript, got %d messages", len(messages))
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	reply, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a waiter."},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleUser, Content: "What is spicy?"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Try the **curry**." {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestClientRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		completionHandler(t, `{"ok":true}`, nil)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "key", BaseURL: server.URL},
		WithRetryBackoff(10*time.Millisecond, 15*time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 15*time.Millisecond {
		t.Fatalf("unexpected backoff sequence %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain", `{"name":"Pho"}`, false},
		{"fenced", "```json\n{\"name\":\"Pho\"}\n```", false},
		{"prose", "Here you go: {\"name\":\"Pho\"} enjoy!", false},
		{"fence after prose", "Sure!\n```\n{\"name\":\"Pho\"}\n```", false},
		{"empty", "   ", true},
		{"garbage", "no json here", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				Name string `json:"name"`
			}
			err := DecodeLLMJSON(tc.content, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Name != "Pho" {
				t.Fatalf("unexpected name %q", out.Name)
			}
		})
	}
}

func TestDecodeLLMJSONBareArray(t *testing.T) {
	var out []struct {
		Name string `json:"name"`
	}
	if err := DecodeLLMJSON("Result:\n[{\"name\":\"Apple\"},{\"name\":\"Kiwi\"}]", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if len(out) != 2 || out[1].Name != "Kiwi" {
		t.Fatalf("unexpected decode %+v", out)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("expected 3s, got %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative values must be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage must be rejected")
	}
}
