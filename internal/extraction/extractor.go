package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/services/llm"
)

// VisionCompleter sends an image plus prompts and returns raw JSON text.
type VisionCompleter interface {
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
}

var supportedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
	"image/heic": {},
}

// Result is one formatted-ready extraction.
type Result struct {
	Mode               menu.Mode
	RestaurantName     string
	RestaurantLocation string
	Dishes             []menu.RawDish
	Items              []menu.NutritionItem
}

// Count returns the number of extracted records for the mode.
func (r Result) Count() int {
	if r.Mode == menu.ModeNutrition {
		return len(r.Items)
	}
	return len(r.Dishes)
}

// Extractor turns captured images into raw dish or nutrition records.
type Extractor struct {
	client VisionCompleter
	logger *slog.Logger
}

// New constructs an extractor over the vision backend.
func New(client VisionCompleter, logger *slog.Logger) *Extractor {
	return &Extractor{client: client, logger: logging.NewComponentLogger(logger, "extraction")}
}

// ResolveMimeType validates the declared type, sniffing the payload when none
// is given.
func ResolveMimeType(image []byte, declared string) (string, error) {
	if len(image) == 0 {
		return "", services.Wrap(services.ErrValidation, "extraction", "mime", "image is empty", nil)
	}
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		mimeType = sniff(image)
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	if _, ok := supportedMimeTypes[mimeType]; !ok {
		return "", services.Wrap(services.ErrValidation, "extraction", "mime",
			fmt.Sprintf("unsupported image type %q", mimeType), nil)
	}
	return mimeType, nil
}

func sniff(image []byte) string {
	detected := http.DetectContentType(image)
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	if detected == "application/octet-stream" && isHEIC(image) {
		return "image/heic"
	}
	return detected
}

func isHEIC(image []byte) bool {
	if len(image) < 12 || string(image[4:8]) != "ftyp" {
		return false
	}
	switch string(image[8:12]) {
	case "heic", "heix", "mif1", "msf1":
		return true
	}
	return false
}

// Extract runs the extraction for mode. Any backend or decode failure is a
// whole-scan failure.
func (e *Extractor) Extract(ctx context.Context, mode menu.Mode, image []byte, mimeType string) (Result, error) {
	resolved, err := ResolveMimeType(image, mimeType)
	if err != nil {
		return Result{}, err
	}
	if e.client == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "extraction", "extract", "vision backend not configured", nil)
	}
	switch mode {
	case menu.ModeNutrition:
		items, err := e.nutrition(ctx, image, resolved)
		if err != nil {
			return Result{}, err
		}
		return Result{Mode: mode, Items: items}, nil
	default:
		res, err := e.menu(ctx, image, resolved)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Mode:               menu.ModeMenu,
			RestaurantName:     strings.TrimSpace(res.RestaurantName),
			RestaurantLocation: strings.TrimSpace(res.RestaurantLocation),
			Dishes:             res.Dishes,
		}, nil
	}
}

func (e *Extractor) menu(ctx context.Context, image []byte, mimeType string) (menu.MenuExtraction, error) {
	content, err := e.client.CompleteVisionJSON(ctx, menuSystemPrompt, menuUserPrompt, image, mimeType)
	if err != nil {
		return menu.MenuExtraction{}, classifyBackendError("menu", err)
	}
	var parsed menu.MenuExtraction
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return menu.MenuExtraction{}, services.Wrap(services.ErrMalformedPayload, "extraction", "menu", "decode response", err)
	}
	if parsed.Dishes == nil {
		return menu.MenuExtraction{}, services.Wrap(services.ErrMalformedPayload, "extraction", "menu", "response has no dishes field", nil)
	}
	e.logger.Debug("menu extracted",
		logging.Int("dish_count", len(parsed.Dishes)),
		logging.String("restaurant_name", parsed.RestaurantName),
	)
	return parsed, nil
}

func (e *Extractor) nutrition(ctx context.Context, image []byte, mimeType string) ([]menu.NutritionItem, error) {
	content, err := e.client.CompleteVisionJSON(ctx, nutritionSystemPrompt, nutritionUserPrompt, image, mimeType)
	if err != nil {
		return nil, classifyBackendError("nutrition", err)
	}
	items, err := decodeNutrition(content)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedPayload, "extraction", "nutrition", "decode response", err)
	}
	e.logger.Debug("nutrition extracted", logging.Int("item_count", len(items)))
	return items, nil
}

// decodeNutrition accepts {"items": [...]} or a bare top-level array.
func decodeNutrition(content string) ([]menu.NutritionItem, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []menu.NutritionItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var wrapped struct {
		Items []menu.NutritionItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Items == nil {
		return nil, errors.New("response has no items field")
	}
	return wrapped.Items, nil
}

func classifyBackendError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "extraction", operation, "vision backend timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, "extraction", operation, "vision backend request failed", err)
}
