package analytics

import "menuviz/internal/menu"

// Event names.
const (
	EventMenuScanned     = "menu_scanned"
	EventDishTranslated  = "dish_translated"
	EventRecipeGenerated = "recipe_generated"
	EventChatMessageSent = "chat_message_sent"
	EventBillSplit       = "bill_split"
	EventLanguageChanged = "language_changed"
	EventFavoriteAction  = "favorite_action"
	EventImageGenerated  = "image_generated"
	EventErrorOccurred   = "error_occurred"
	EventFeatureUsed     = "feature_used"
)

// Error types carried by EventErrorOccurred.
const (
	ErrorTypeMenuAnalysis = "menu_analysis_failed"
	ErrorTypeImage        = "image_generation_failed"
	ErrorTypeTranslation  = "translation_failed"
	ErrorTypeRecipe       = "recipe_generation_failed"
)

const unknownValue = "unknown"

// Event is one usage record.
type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

func orUnknown(value string) string {
	if value == "" {
		return unknownValue
	}
	return value
}

// MenuScanned records a completed capture.
func MenuScanned(count int, mode menu.Mode, detectedLanguage, restaurant string) Event {
	return Event{Name: EventMenuScanned, Params: map[string]any{
		"dish_count":        count,
		"mode":              string(mode),
		"language_detected": orUnknown(detectedLanguage),
		"restaurant_name":   orUnknown(restaurant),
	}}
}

// DishTranslated records a translation result.
func DishTranslated(dish, from, to string, auto bool) Event {
	return Event{Name: EventDishTranslated, Params: map[string]any{
		"dish_name":      dish,
		"from_language":  orUnknown(from),
		"to_language":    to,
		"auto_translate": auto,
	}}
}

// RecipeGenerated records a generated recipe.
func RecipeGenerated(dish, difficulty string) Event {
	return Event{Name: EventRecipeGenerated, Params: map[string]any{
		"dish_name":  dish,
		"difficulty": orUnknown(difficulty),
	}}
}

// ChatMessageSent records a concierge question.
func ChatMessageSent(count int) Event {
	return Event{Name: EventChatMessageSent, Params: map[string]any{"message_count": count}}
}

// BillSplit records a computed split.
func BillSplit(people int, total float64, items int) Event {
	return Event{Name: EventBillSplit, Params: map[string]any{
		"people_count": people,
		"total_amount": total,
		"items_count":  items,
	}}
}

// LanguageChanged records a target language change.
func LanguageChanged(from, to string) Event {
	return Event{Name: EventLanguageChanged, Params: map[string]any{
		"from_language": from,
		"to_language":   to,
	}}
}

// FavoriteAction records a favorite toggle. action is "added" or "removed".
func FavoriteAction(added bool, dish string) Event {
	action := "removed"
	if added {
		action = "added"
	}
	return Event{Name: EventFavoriteAction, Params: map[string]any{
		"action":    action,
		"dish_name": dish,
	}}
}

// ImageGenerated records a successful dish image.
func ImageGenerated(dish string) Event {
	return Event{Name: EventImageGenerated, Params: map[string]any{"dish_name": dish}}
}

// ErrorOccurred records a user-visible failure.
func ErrorOccurred(errorType, message, context string) Event {
	return Event{Name: EventErrorOccurred, Params: map[string]any{
		"error_type":    errorType,
		"error_message": message,
		"context":       orUnknown(context),
	}}
}

// FeatureUsed records use of a secondary feature such as export or speech.
func FeatureUsed(feature, action string) Event {
	if action == "" {
		action = "used"
	}
	return Event{Name: EventFeatureUsed, Params: map[string]any{
		"feature_name": feature,
		"action":       action,
	}}
}
