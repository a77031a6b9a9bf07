package session

import (
	"context"

	"menuviz/internal/concierge"
	"menuviz/internal/dispatch"
	"menuviz/internal/extraction"
	"menuviz/internal/menu"
	"menuviz/internal/restaurant"
)

// State is the screen the session is on.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateResults   State = "results"
	StateError     State = "error"
)

// AnalyzeFailed is the user-facing message for a failed scan.
const AnalyzeFailed = "Failed to analyze. Please try again."

// Extractor reads dishes or nutrition items from an image.
type Extractor interface {
	Extract(ctx context.Context, mode menu.Mode, image []byte, mimeType string) (extraction.Result, error)
}

// Snapshot is a consistent copy of the session for rendering.
type Snapshot struct {
	State              State                `json:"state"`
	Mode               menu.Mode            `json:"mode"`
	Error              string               `json:"error,omitempty"`
	Restaurant         *restaurant.Details  `json:"restaurant,omitempty"`
	Dishes             []menu.Dish          `json:"dishes"`
	Nutrition          []menu.NutritionItem `json:"nutrition"`
	Language           string               `json:"language"`
	DetectedLanguage   string               `json:"detectedLanguage,omitempty"`
	SuggestTranslation bool                 `json:"suggestTranslation"`
	Chat               []concierge.Turn     `json:"chat"`
	Dispatch           dispatch.Stats       `json:"dispatch"`
}
