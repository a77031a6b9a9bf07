package history

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"menuviz/internal/menu"
)

const summaryNameLimit = 20

// Session is an immutable snapshot of one completed scan.
type Session struct {
	ID         string               `json:"id"`
	Timestamp  int64                `json:"timestamp"`
	Mode       menu.Mode            `json:"mode"`
	Summary    string               `json:"summary"`
	Restaurant string               `json:"restaurant,omitempty"`
	Dishes     []menu.Dish          `json:"dishes,omitempty"`
	Nutrition  []menu.NutritionItem `json:"nutrition,omitempty"`
}

// Time returns the capture time.
func (s Session) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Len returns the number of items in the snapshot.
func (s Session) Len() int {
	if s.Mode == menu.ModeNutrition {
		return len(s.Nutrition)
	}
	return len(s.Dishes)
}

// NewMenu snapshots a menu scan. Dishes are stored without transient flags
// or generated image URLs.
func NewMenu(dishes []menu.Dish, restaurant string, now time.Time) Session {
	first := ""
	if len(dishes) > 0 {
		first = dishes[0].Name
	}
	return Session{
		ID:         uuid.NewString(),
		Timestamp:  now.UnixMilli(),
		Mode:       menu.ModeMenu,
		Summary:    Summarize(menu.ModeMenu, first, len(dishes)),
		Restaurant: restaurant,
		Dishes:     menu.SnapshotDishes(dishes),
	}
}

// NewNutrition snapshots a nutrition scan.
func NewNutrition(items []menu.NutritionItem, now time.Time) Session {
	first := ""
	if len(items) > 0 {
		first = items[0].Name
	}
	return Session{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		Mode:      menu.ModeNutrition,
		Summary:   Summarize(menu.ModeNutrition, first, len(items)),
		Nutrition: slices.Clone(items),
	}
}

// Summarize builds the list label: the first item's name cut to 20 runes,
// "..." when there are more items, then "Menu" or "Scan".
func Summarize(mode menu.Mode, firstName string, count int) string {
	name := "Unknown"
	if count > 0 {
		name = firstName
	}
	if runes := []rune(name); len(runes) > summaryNameLimit {
		name = string(runes[:summaryNameLimit])
	}
	if count > 1 {
		name += "..."
	}
	if mode == menu.ModeNutrition {
		return name + " Scan"
	}
	return name + " Menu"
}

// List is the history, newest first.
type List []Session

// Prepend returns a new list with s at the front.
func (l List) Prepend(s Session) List {
	out := make(List, 0, len(l)+1)
	out = append(out, s)
	return append(out, l...)
}

// Delete returns a new list without id.
func (l List) Delete(id string) (List, bool) {
	idx := slices.IndexFunc(l, func(s Session) bool { return s.ID == id })
	if idx < 0 {
		return l, false
	}
	out := make(List, 0, len(l)-1)
	out = append(out, l[:idx]...)
	return append(out, l[idx+1:]...), true
}

// Find returns the session with id. A unique id prefix also matches.
func (l List) Find(id string) (Session, bool) {
	for _, s := range l {
		if s.ID == id {
			return s, true
		}
	}
	var match Session
	hits := 0
	for _, s := range l {
		if len(id) >= 4 && len(s.ID) > len(id) && s.ID[:len(id)] == id {
			match = s
			hits++
		}
	}
	return match, hits == 1
}
