package api

import (
	"menuviz/internal/billsplit"
	"menuviz/internal/dietary"
	"menuviz/internal/dispatch"
	"menuviz/internal/menu"
	"menuviz/internal/restaurant"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StorePath    string         `json:"storePath"`
	LockFilePath string         `json:"lockFilePath"`
	State        string         `json:"state"`
	Mode         string         `json:"mode"`
	Error        string         `json:"error,omitempty"`
	ItemCount    int            `json:"itemCount"`
	Language     string         `json:"language"`
	Dispatch     dispatch.Stats `json:"dispatch"`
	Cameras      []string       `json:"cameras"`
	CameraWatch  bool           `json:"cameraWatch"`
}

// Dish is a dish with its derived views.
type Dish struct {
	menu.Dish
	Safety   dietary.Verdict `json:"safety"`
	Favorite bool            `json:"isFavorite"`
}

// ItemsResponse is the current collection.
type ItemsResponse struct {
	State              string               `json:"state"`
	Mode               string               `json:"mode"`
	Restaurant         *restaurant.Details  `json:"restaurant,omitempty"`
	Dishes             []Dish               `json:"dishes"`
	Nutrition          []menu.NutritionItem `json:"nutrition"`
	DetectedLanguage   string               `json:"detectedLanguage,omitempty"`
	SuggestTranslation bool                 `json:"suggestTranslation"`
}

// ItemResponse wraps one dish.
type ItemResponse struct {
	Item Dish `json:"item"`
}

// QueuedResponse reports whether an image request was queued.
type QueuedResponse struct {
	Queued bool `json:"queued"`
}

// TranslationResponse wraps a dish translation.
type TranslationResponse struct {
	ItemID      string           `json:"itemId"`
	Translation menu.Translation `json:"translation"`
}

// RecipeResponse wraps a dish recipe.
type RecipeResponse struct {
	ItemID string      `json:"itemId"`
	Recipe menu.Recipe `json:"recipe"`
}

// TranslateAllResponse reports how many dishes were translated.
type TranslateAllResponse struct {
	Translated int `json:"translated"`
}

// ChatResponse carries the concierge reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// HistoryEntry summarizes one saved scan.
type HistoryEntry struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"createdAt"`
	Mode       string `json:"mode"`
	Summary    string `json:"summary"`
	Restaurant string `json:"restaurant,omitempty"`
	ItemCount  int    `json:"itemCount"`
}

// HistoryResponse lists saved scans, newest first.
type HistoryResponse struct {
	Sessions []HistoryEntry `json:"sessions"`
}

// LanguageResponse reports the language change.
type LanguageResponse struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// FavoriteResponse reports the favorite state after a toggle.
type FavoriteResponse struct {
	ItemID   string `json:"itemId"`
	Favorite bool   `json:"isFavorite"`
}

// BillResponse is a computed split.
type BillResponse struct {
	Items      []billsplit.Item `json:"items"`
	People     []PersonShare    `json:"people"`
	TaxPercent float64          `json:"taxPercent"`
	TipPercent float64          `json:"tipPercent"`
	GrandTotal float64          `json:"grandTotal"`
}

// PersonShare is one person's part of the bill.
type PersonShare struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
}

// SpeechResponse carries the text to read aloud.
type SpeechResponse struct {
	Text     string `json:"text"`
	Speaking bool   `json:"speaking"`
}

// CamerasResponse lists known video devices.
type CamerasResponse struct {
	Devices []string `json:"devices"`
}
