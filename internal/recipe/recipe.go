package recipe

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/services/llm"
)

// Difficulty tiers.
const (
	Easy   = "Easy"
	Medium = "Medium"
	Hard   = "Hard"
)

const systemPrompt = "You are a home cooking instructor. Respond with a single JSON object only. Do not use markdown."

// Completer issues JSON-only completions.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service generates home-cooking recipes for dishes.
type Service struct {
	client Completer
}

// New builds a recipe service.
func New(client Completer) *Service {
	return &Service{client: client}
}

// NormalizeDifficulty maps model output onto Easy, Medium or Hard. Unknown
// values become Medium.
func NormalizeDifficulty(value string) string {
	switch title := cases.Title(language.English).String(strings.TrimSpace(value)); title {
	case Easy, Medium, Hard:
		return title
	case "Beginner", "Simple":
		return Easy
	case "Difficult", "Advanced", "Expert":
		return Hard
	default:
		return Medium
	}
}

// ForDish returns the dish's existing recipe without a call, or generates
// one.
func (s *Service) ForDish(ctx context.Context, dish menu.Dish) (menu.Recipe, bool, error) {
	if dish.Recipe != nil {
		return *dish.Recipe, false, nil
	}
	r, err := s.Generate(ctx, dish.Name, dish.Description)
	return r, err == nil, err
}

// Generate asks the model for a recipe.
func (s *Service) Generate(ctx context.Context, name, description string) (menu.Recipe, error) {
	if strings.TrimSpace(name) == "" {
		return menu.Recipe{}, services.Wrap(services.ErrValidation, "recipe", "generate", "dish name is empty", nil)
	}
	if s.client == nil {
		return menu.Recipe{}, services.Wrap(services.ErrConfiguration, "recipe", "generate", "llm not configured", nil)
	}
	prompt := fmt.Sprintf(`Create a detailed home cooking recipe for %q.
Context: %s.
Return JSON with:
1. "ingredients": array of strings with quantities
2. "instructions": array of step-by-step strings
3. "prepTime": e.g. "15 mins"
4. "cookTime": e.g. "20 mins"
5. "shoppingList": array of concise grocery items
6. "difficulty": "Easy", "Medium", or "Hard"`, name, description)

	content, err := s.client.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return menu.Recipe{}, services.Wrap(services.ErrExternalTool, "recipe", "generate", "recipe request failed", err)
	}
	var r menu.Recipe
	if err := llm.DecodeLLMJSON(content, &r); err != nil {
		return menu.Recipe{}, services.Wrap(services.ErrMalformedPayload, "recipe", "generate", "decode recipe", err)
	}
	if len(r.Ingredients) == 0 || len(r.Instructions) == 0 {
		return menu.Recipe{}, services.Wrap(services.ErrMalformedPayload, "recipe", "generate", "recipe has no ingredients or steps", nil)
	}
	if r.ShoppingList == nil {
		r.ShoppingList = []string{}
	}
	r.Difficulty = NormalizeDifficulty(r.Difficulty)
	return r, nil
}
