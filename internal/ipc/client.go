package ipc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"menuviz/internal/api"
	"menuviz/internal/config"
	"menuviz/internal/dietary"
	"menuviz/internal/restaurant"
	"menuviz/internal/services"
)

const defaultTimeout = 3 * time.Minute

// Client talks to the menuvizd HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// Dial builds a client for the daemon listening on addr. addr may be a bare
// host:port or a full URL.
func Dial(addr string, opts ...Option) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("daemon address is empty")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DialConfig builds a client from the paths section of cfg.
func DialConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	opts = append([]Option{WithToken(cfg.Paths.APIToken)}, opts...)
	return Dial(cfg.Paths.APIBind, opts...)
}

// Address returns the daemon base URL.
func (c *Client) Address() string {
	return c.baseURL
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	marker  error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.Status)
	}
	return e.Message
}

// Is matches the services error marker implied by the status code.
func (e *Error) Is(target error) bool {
	return e.marker != nil && target == e.marker
}

func markerFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusServiceUnavailable:
		return services.ErrConfiguration
	case http.StatusGatewayTimeout:
		return services.ErrTimeout
	case http.StatusBadGateway:
		return services.ErrExternalTool
	default:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok && id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &Error{Status: resp.StatusCode, Message: apiErr.Error, marker: markerFor(resp.StatusCode)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrMalformedPayload, "ipc", "decode", "invalid daemon response", err)
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan uploads an image and returns the extracted items. mode may be empty
// to keep the daemon's current mode.
func (c *Client) Scan(ctx context.Context, image []byte, mimeType, mode string) (*api.ItemsResponse, error) {
	req := api.ScanRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		MimeType:    mimeType,
		Mode:        mode,
	}
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodPost, "/api/scans", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capture grabs a camera frame on the daemon host and scans it.
func (c *Client) Capture(ctx context.Context, device, mode string) (*api.ItemsResponse, error) {
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodPost, "/api/cameras/capture", api.CaptureRequest{Device: device, Mode: mode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh re-scans the last image.
func (c *Client) Refresh(ctx context.Context) (*api.ItemsResponse, error) {
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodPost, "/api/scans/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reset clears the current results.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reset", nil, nil)
}

// Items returns the current results.
func (c *Client) Items(ctx context.Context) (*api.ItemsResponse, error) {
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotifyVisible reports a dish as shown; the daemon queues its image unless
// one is ready, loading or failed.
func (c *Client) NotifyVisible(ctx context.Context, id string) (bool, error) {
	var resp api.QueuedResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/visible", nil, &resp); err != nil {
		return false, err
	}
	return resp.Queued, nil
}

// RequestImage asks for a dish image and reports whether it was queued.
func (c *Client) RequestImage(ctx context.Context, id string) (bool, error) {
	var resp api.QueuedResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/image", nil, &resp); err != nil {
		return false, err
	}
	return resp.Queued, nil
}

// Translate returns the translation of one dish.
func (c *Client) Translate(ctx context.Context, id string) (*api.TranslationResponse, error) {
	var resp api.TranslationResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/translation", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranslateAll translates every dish and returns how many were translated.
func (c *Client) TranslateAll(ctx context.Context) (int, error) {
	var resp api.TranslateAllResponse
	if err := c.do(ctx, http.MethodPost, "/api/translate-all", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Translated, nil
}

// Recipe returns the recipe for one dish.
func (c *Client) Recipe(ctx context.Context, id string) (*api.RecipeResponse, error) {
	var resp api.RecipeResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/recipe", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat sends one concierge message.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp api.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", api.ChatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// LookupRestaurant asks the daemon for a reputation report on the current
// restaurant.
func (c *Client) LookupRestaurant(ctx context.Context) (*restaurant.Details, error) {
	var resp restaurant.Details
	if err := c.do(ctx, http.MethodPost, "/api/restaurant/lookup", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists saved scans, newest first.
func (c *Client) History(ctx context.Context) (*api.HistoryResponse, error) {
	var resp api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteHistory removes a saved scan.
func (c *Client) DeleteHistory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(id), nil, nil)
}

// LoadHistory makes a saved scan the current results.
func (c *Client) LoadHistory(ctx context.Context, id string) (*api.ItemsResponse, error) {
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodPost, "/api/history/"+url.PathEscape(id)+"/load", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preferences returns the dietary preferences.
func (c *Client) Preferences(ctx context.Context) (dietary.Preferences, error) {
	var resp dietary.Preferences
	err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &resp)
	return resp, err
}

// SetPreferences replaces the dietary preferences.
func (c *Client) SetPreferences(ctx context.Context, prefs dietary.Preferences) (dietary.Preferences, error) {
	req := api.PreferencesRequest{
		Vegan:           prefs.Vegan,
		Vegetarian:      prefs.Vegetarian,
		GlutenFree:      prefs.GlutenFree,
		DairyFree:       prefs.DairyFree,
		AvoidPeanuts:    prefs.AvoidPeanuts,
		AvoidShellfish:  prefs.AvoidShellfish,
		CustomAllergies: prefs.CustomAllergies,
	}
	var resp dietary.Preferences
	err := c.do(ctx, http.MethodPut, "/api/preferences", req, &resp)
	return resp, err
}

// SetLanguage changes the target language.
func (c *Client) SetLanguage(ctx context.Context, code string) (*api.LanguageResponse, error) {
	var resp api.LanguageResponse
	if err := c.do(ctx, http.MethodPut, "/api/language", api.LanguageRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleFavorite flips a dish's favorite flag.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var resp api.FavoriteResponse
	if err := c.do(ctx, http.MethodPost, "/api/favorites", api.FavoriteRequest{ItemID: id}, &resp); err != nil {
		return false, err
	}
	return resp.Favorite, nil
}

// Bill applies req to the current bill and returns the split.
func (c *Client) Bill(ctx context.Context, req api.BillRequest) (*api.BillResponse, error) {
	var resp api.BillResponse
	if err := c.do(ctx, http.MethodPost, "/api/bill", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Speech returns the text the daemon would read aloud.
func (c *Client) Speech(ctx context.Context) (*api.SpeechResponse, error) {
	var resp api.SpeechResponse
	if err := c.do(ctx, http.MethodGet, "/api/speech", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleSpeech starts or stops read-aloud on the daemon host.
func (c *Client) ToggleSpeech(ctx context.Context) (*api.SpeechResponse, error) {
	var resp api.SpeechResponse
	if err := c.do(ctx, http.MethodPost, "/api/speech", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cameras lists video devices known to the daemon.
func (c *Client) Cameras(ctx context.Context) ([]string, error) {
	var resp api.CamerasResponse
	if err := c.do(ctx, http.MethodGet, "/api/cameras", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}
