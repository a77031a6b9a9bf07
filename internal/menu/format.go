package menu

import (
	"fmt"
	"strings"
	"time"
)

// RefreshSuffix is appended to ids produced by re-running extraction on the
// same image.
const RefreshSuffix = "-refresh"

// FormatDishes assigns ids of the form dish-<index>-<unix millis><suffix> and
// fills defaults. Order follows the extraction.
func FormatDishes(raw []RawDish, at time.Time, suffix string) []Dish {
	stamp := at.UnixMilli()
	dishes := make([]Dish, 0, len(raw))
	for i, r := range raw {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		dishes = append(dishes, Dish{
			ID:             fmt.Sprintf("dish-%d-%d%s", i, stamp, suffix),
			Name:           strings.TrimSpace(r.Name),
			OriginalName:   strings.TrimSpace(r.OriginalName),
			Description:    strings.TrimSpace(r.Description),
			Tags:           append([]string(nil), tags...),
			Nutrition:      r.Nutrition,
			Pairing:        strings.TrimSpace(r.Pairing),
			Price:          strings.TrimSpace(r.Price),
			ConvertedPrice: strings.TrimSpace(r.ConvertedPrice),
		})
	}
	return dishes
}

// FormatNutrition assigns ids of the form nutri-<index>-<unix millis><suffix>.
func FormatNutrition(raw []NutritionItem, at time.Time, suffix string) []NutritionItem {
	stamp := at.UnixMilli()
	items := make([]NutritionItem, 0, len(raw))
	for i, r := range raw {
		r.ID = fmt.Sprintf("nutri-%d-%d%s", i, stamp, suffix)
		r.Name = strings.TrimSpace(r.Name)
		if r.Vitamins == nil {
			r.Vitamins = []string{}
		}
		items = append(items, r)
	}
	return items
}

// SnapshotDishes returns the history form of dishes.
func SnapshotDishes(dishes []Dish) []Dish {
	out := make([]Dish, len(dishes))
	for i, d := range dishes {
		out[i] = d.Snapshot()
	}
	return out
}
