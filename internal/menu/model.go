package menu

import (
	"fmt"
	"strings"
)

// Mode selects which extraction runs for a capture.
type Mode string

const (
	ModeMenu      Mode = "menu"
	ModeNutrition Mode = "nutrition"
)

// ParseMode accepts "menu" (alias "visualizer") and "nutrition".
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "menu", "visualizer":
		return ModeMenu, nil
	case "nutrition":
		return ModeNutrition, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want menu or nutrition)", value)
	}
}

// Nutrition is the per-dish nutrition estimate.
type Nutrition struct {
	Calories       string   `json:"calories"`
	Macronutrients string   `json:"macronutrients"`
	Vitamins       []string `json:"vitamins"`
	Safety         string   `json:"safety"`
	Allergens      []string `json:"allergens,omitempty"`
	Fiber          string   `json:"fiber,omitempty"`
	Sugar          string   `json:"sugar,omitempty"`
	Sodium         string   `json:"sodium,omitempty"`
	ServingSize    string   `json:"servingSize,omitempty"`
}

// Recipe is a generated home-cooking recipe.
type Recipe struct {
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepTime     string   `json:"prepTime"`
	CookTime     string   `json:"cookTime"`
	ShoppingList []string `json:"shoppingList"`
	Difficulty   string   `json:"difficulty"`
}

// Translation is a dish name rendered into the user's language.
type Translation struct {
	TranslatedName          string   `json:"translatedName"`
	Pronunciation           string   `json:"pronunciation"`
	SimplifiedPronunciation string   `json:"simplifiedPronunciation"`
	CulturalContext         string   `json:"culturalContext"`
	IngredientExplanations  []string `json:"ingredientExplanations"`
	OriginCountry           string   `json:"originCountry"`
	DetectedLanguage        string   `json:"detectedLanguage"`
}

// Dish is one menu entry plus its enrichment state.
//
// Image state is only ever changed through an ImageState patch, so a dish is
// never loading while holding a URL.
type Dish struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	OriginalName   string       `json:"originalName,omitempty"`
	Description    string       `json:"description"`
	Tags           []string     `json:"tags"`
	Pairing        string       `json:"pairing,omitempty"`
	Price          string       `json:"price,omitempty"`
	ConvertedPrice string       `json:"convertedPrice,omitempty"`
	Nutrition      *Nutrition   `json:"nutrition,omitempty"`
	Recipe         *Recipe      `json:"recipe,omitempty"`
	Translation    *Translation `json:"translation,omitempty"`

	GeneratedImageURL  string `json:"generatedImageUrl,omitempty"`
	LoadingImage       bool   `json:"isLoadingImage"`
	GenerationFailed   bool   `json:"generationFailed,omitempty"`
	LoadingRecipe      bool   `json:"isLoadingRecipe,omitempty"`
	LoadingTranslation bool   `json:"isLoadingTranslation,omitempty"`
}

// NeedsImage reports whether a visibility notification should enqueue the dish.
func (d Dish) NeedsImage() bool {
	return d.GeneratedImageURL == "" && !d.LoadingImage && !d.GenerationFailed
}

// Clean drops transient loading flags, keeping generated content.
func (d Dish) Clean() Dish {
	d.LoadingImage = false
	d.LoadingRecipe = false
	d.LoadingTranslation = false
	return d
}

// Snapshot is the history form: transient flags and the image URL removed,
// since generated URLs may expire.
func (d Dish) Snapshot() Dish {
	d = d.Clean()
	d.GeneratedImageURL = ""
	d.Tags = append([]string(nil), d.Tags...)
	return d
}

// NutritionItem is one food identified in nutrition mode.
type NutritionItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Calories       string   `json:"calories"`
	Safety         string   `json:"safety"`
	Vitamins       []string `json:"vitamins"`
	Macronutrients string   `json:"macronutrients"`
	Description    string   `json:"description"`
}

// RawDish is a dish as returned by the extraction backend, before formatting.
type RawDish struct {
	Name           string     `json:"name"`
	OriginalName   string     `json:"originalName"`
	Description    string     `json:"description"`
	Tags           []string   `json:"tags"`
	Nutrition      *Nutrition `json:"nutrition"`
	Pairing        string     `json:"pairing"`
	Price          string     `json:"price"`
	ConvertedPrice string     `json:"convertedPrice"`
}

// MenuExtraction is the menu-mode backend response.
type MenuExtraction struct {
	RestaurantName     string    `json:"restaurantName"`
	RestaurantLocation string    `json:"restaurantLocation"`
	Dishes             []RawDish `json:"dishes"`
}
