package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"menuviz/internal/services"
)

const (
	defaultBaseURL = "https://image.pollinations.ai/prompt"
	defaultModel   = "turbo"
	defaultSize    = 768
	defaultTimeout = 30 * time.Second
)

// Generator turns a dish into a reference to a generated picture.
type Generator interface {
	Generate(ctx context.Context, name, description string) (string, error)
}

// Config captures the image backend settings.
type Config struct {
	BaseURL        string
	Model          string
	Width          int
	Height         int
	Prefetch       bool
	TimeoutSeconds int
}

// Client builds Pollinations image URLs. The backend renders lazily on first
// fetch, so Generate only talks to the network when prefetch is enabled.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an image client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultSize
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultSize
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Prompt is the text sent to the image model.
func Prompt(name, description string) string {
	return fmt.Sprintf("professional food photography of %s, %s, high resolution, restaurant style, appetizing, detailed",
		strings.TrimSpace(name), strings.TrimSpace(description))
}

// Seed keeps images stable per dish name: the sum of its code points.
func Seed(name string) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return sum
}

// URL returns the image URL for a dish without touching the network.
func (c *Client) URL(name, description string) string {
	query := url.Values{}
	query.Set("width", strconv.Itoa(c.cfg.Width))
	query.Set("height", strconv.Itoa(c.cfg.Height))
	query.Set("model", c.cfg.Model)
	query.Set("seed", strconv.Itoa(Seed(name)))
	query.Set("nologo", "true")
	query.Set("enhance", "true")
	return c.cfg.BaseURL + "/" + url.PathEscape(Prompt(name, description)) + "?" + query.Encode()
}

// Generate returns the image URL for the dish. With prefetch enabled the image
// is fetched once so a broken backend fails here instead of in the viewer.
func (c *Client) Generate(ctx context.Context, name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", services.Wrap(services.ErrValidation, "imagegen", "generate", "dish name required", nil)
	}
	imageURL := c.URL(name, description)
	if !c.cfg.Prefetch {
		return imageURL, nil
	}
	if err := c.prefetch(ctx, imageURL); err != nil {
		return "", err
	}
	return imageURL, nil
}

func (c *Client) prefetch(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "imagegen", "prefetch", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		marker := services.ErrExternalTool
		if ctx.Err() != nil {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "imagegen", "prefetch", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalTool, "imagegen", "prefetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return services.Wrap(services.ErrExternalTool, "imagegen", "prefetch",
			fmt.Sprintf("unexpected content type %q", ct), nil)
	}
	return nil
}
