package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"menuviz/internal/api"
	"menuviz/internal/dietary"
	"menuviz/internal/menu"
)

const descriptionWidth = 48

// resolveDish finds a dish by 1-based position, id, or case-insensitive name.
func resolveDish(items *api.ItemsResponse, ref string) (api.Dish, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return api.Dish{}, fmt.Errorf("dish reference is required")
	}
	if items == nil || len(items.Dishes) == 0 {
		return api.Dish{}, fmt.Errorf("no dishes loaded; run `menuviz scan` first")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items.Dishes) {
			return api.Dish{}, fmt.Errorf("dish %d out of range (1-%d)", n, len(items.Dishes))
		}
		return items.Dishes[n-1], nil
	}
	for _, d := range items.Dishes {
		if d.ID == ref {
			return d, nil
		}
	}
	for _, d := range items.Dishes {
		if strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return api.Dish{}, fmt.Errorf("no dish matches %q", ref)
}

func renderItems(out io.Writer, items *api.ItemsResponse, colorize bool) {
	if items == nil {
		return
	}
	if items.Restaurant != nil && items.Restaurant.Name != "" {
		for _, line := range renderSectionHeader(items.Restaurant.Name, colorize) {
			fmt.Fprintln(out, line)
		}
		if items.Restaurant.Summary != "" {
			fmt.Fprintln(out, items.Restaurant.Summary)
		}
	}
	if items.Mode == string(menu.ModeNutrition) {
		renderNutrition(out, items.Nutrition)
		return
	}
	if len(items.Dishes) == 0 {
		fmt.Fprintf(out, "No dishes (%s)\n", items.State)
		return
	}

	rows := make([][]string, 0, len(items.Dishes))
	for i, d := range items.Dishes {
		name := d.Name
		if d.Favorite {
			name = "★ " + name
		}
		if d.Translation != nil && d.Translation.TranslatedName != "" {
			name += " (" + d.Translation.TranslatedName + ")"
		}
		price := d.Price
		if d.ConvertedPrice != "" {
			price += " ≈ " + d.ConvertedPrice
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			name,
			price,
			safetyLabel(d.Safety),
			imageLabel(d.Dish),
			truncate(d.Description, descriptionWidth),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Dish", "Price", "Safety", "Image", "Description"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	))
	if items.SuggestTranslation && items.DetectedLanguage != "" {
		fmt.Fprintf(out, "Menu looks like %s; run `menuviz translate --all` to translate it.\n", items.DetectedLanguage)
	}
}

func renderNutrition(out io.Writer, items []menu.NutritionItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No food items detected")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.Name,
			it.Type,
			it.Calories,
			it.Macronutrients,
			strings.Join(it.Vitamins, ", "),
			it.Safety,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Item", "Type", "Calories", "Macros", "Vitamins", "Safety"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func safetyLabel(v dietary.Verdict) string {
	switch v.Status {
	case dietary.StatusSafe:
		return "safe"
	case dietary.StatusUnsafe:
		if v.Message != "" {
			return "unsafe: " + v.Message
		}
		return "unsafe"
	default:
		return ""
	}
}

func imageLabel(d menu.Dish) string {
	switch {
	case d.GeneratedImageURL != "":
		return "ready"
	case d.LoadingImage:
		return "generating"
	case d.GenerationFailed:
		return "failed"
	default:
		return ""
	}
}

func truncate(s string, width int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= width {
		return string(r)
	}
	return string(r[:width-1]) + "…"
}

func renderRecipe(out io.Writer, name string, r menu.Recipe) {
	fmt.Fprintf(out, "%s\n", name)
	fmt.Fprintf(out, "Prep %s, cook %s, difficulty %s\n\n", orDash(r.PrepTime), orDash(r.CookTime), orDash(r.Difficulty))
	fmt.Fprintln(out, "Ingredients:")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(out, "  - %s\n", ing)
	}
	fmt.Fprintln(out, "\nInstructions:")
	for i, step := range r.Instructions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	if len(r.ShoppingList) > 0 {
		fmt.Fprintln(out, "\nShopping list:")
		for _, item := range r.ShoppingList {
			fmt.Fprintf(out, "  [ ] %s\n", item)
		}
	}
}

func renderTranslation(out io.Writer, original string, tr menu.Translation) {
	fmt.Fprintf(out, "%s → %s\n", original, tr.TranslatedName)
	if tr.Pronunciation != "" {
		fmt.Fprintf(out, "  Pronunciation: %s", tr.Pronunciation)
		if tr.SimplifiedPronunciation != "" {
			fmt.Fprintf(out, " (%s)", tr.SimplifiedPronunciation)
		}
		fmt.Fprintln(out)
	}
	if tr.OriginCountry != "" {
		fmt.Fprintf(out, "  Origin: %s\n", tr.OriginCountry)
	}
	if tr.CulturalContext != "" {
		fmt.Fprintf(out, "  %s\n", tr.CulturalContext)
	}
	for _, line := range tr.IngredientExplanations {
		fmt.Fprintf(out, "  - %s\n", line)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
