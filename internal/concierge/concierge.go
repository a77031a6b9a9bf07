package concierge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
	"menuviz/internal/services/llm"
)

// Fallback replies recorded when the backend cannot answer.
const (
	EmptyReply   = "I'm sorry, I couldn't formulate a response."
	FailureReply = "Sorry, I'm having trouble connecting to the kitchen right now."
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Chatter sends a transcript and returns the assistant reply.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Turn is one visible chat message.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Conversation is a menu-seeded chat. Safe for concurrent use; turns are
// serialized.
type Conversation struct {
	mu     sync.Mutex
	client Chatter
	system string
	turns  []Turn
	logger *slog.Logger
}

// New seeds a conversation with one summary line per dish.
func New(client Chatter, dishes []menu.Dish, logger *slog.Logger) *Conversation {
	return &Conversation{
		client: client,
		system: SystemPrompt(dishes),
		logger: logging.NewComponentLogger(logger, "concierge"),
	}
}

// DishLine summarizes a dish for the system prompt.
func DishLine(d menu.Dish) string {
	original := d.OriginalName
	if original == "" {
		original = d.Name
	}
	price := d.Price
	if price == "" {
		price = "N/A"
	}
	pairing := d.Pairing
	if pairing == "" {
		pairing = "None"
	}
	calories := "Unknown"
	if d.Nutrition != nil && d.Nutrition.Calories != "" {
		calories = d.Nutrition.Calories
	}
	return fmt.Sprintf("- %s (%s): %s. %s. Tags: %s. Pairing: %s. Calories: %s.",
		d.Name, original, price, d.Description, strings.Join(d.Tags, ", "), pairing, calories)
}

// SystemPrompt builds the concierge instructions around the menu.
func SystemPrompt(dishes []menu.Dish) string {
	lines := make([]string, 0, len(dishes))
	for _, d := range dishes {
		lines = append(lines, DishLine(d))
	}
	return `You are a knowledgeable restaurant concierge helping customers understand the menu.

Language rules:
1. Always respond in the same language as the user's most recent message.
2. If the user switches languages, switch immediately.

Strict rules:
1. Only answer questions about the dishes listed in the menu below.
2. Never suggest or recommend dishes that are not on this menu.
3. Never say you will contact the chef or ask the kitchen; you have all the information you need.
4. If asked about something not on the menu, say "That item is not available on this menu. I can only help you with the dishes listed here." in the user's language.
5. If you lack a specific detail, say "I don't have that specific detail, but here's what I know about this dish..." in the user's language.

MENU DATA:
` + strings.Join(lines, "\n") + `

Help customers choose between these dishes based on preferences such as spice, dietary needs and pairings.
Keep answers concise, helpful and enthusiastic. Use short paragraphs and simple "-" lists. Do not use markdown headings.`
}

// Ask records the user turn, sends the whole transcript and records the
// reply. Backend failures become a fallback reply; Ask never fails.
func (c *Conversation) Ask(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, Turn{Role: RoleUser, Text: text})
	messages := make([]llm.Message, 0, len(c.turns)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: c.system})
	for _, t := range c.turns {
		role := llm.RoleUser
		if t.Role == RoleModel {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}

	reply := FailureReply
	if c.client != nil {
		answer, err := c.client.Chat(ctx, messages)
		switch {
		case err != nil:
			logging.WarnWithContext(c.logger, "concierge reply failed", "chat_failed",
				logging.Error(err),
				logging.String(logging.FieldScope, string(services.ScopeItem)),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "fallback reply shown"),
			)
		case strings.TrimSpace(answer) == "":
			reply = EmptyReply
		default:
			reply = strings.TrimSpace(answer)
		}
	}
	c.turns = append(c.turns, Turn{Role: RoleModel, Text: reply})
	return reply
}

// Turns returns the visible transcript.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// UserMessageCount returns how many user turns were sent.
func (c *Conversation) UserMessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}
