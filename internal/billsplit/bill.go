package billsplit

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"menuviz/internal/menu"
)

// Defaults for a fresh bill.
const (
	DefaultTaxPercent = 0
	DefaultTipPercent = 15
	DefaultPersonName = "Me"
)

var (
	ErrLastPerson    = errors.New("cannot remove the last person")
	ErrUnknownPerson = errors.New("unknown person")
	ErrUnknownItem   = errors.New("unknown item")
	ErrEmptyName     = errors.New("person name is empty")
	ErrInvalidRate   = errors.New("rate must be between 0 and 100")
	ErrInvalidAmount = errors.New("price must not be negative")
)

// Bill is an editable split over one scan's dishes. It is not safe for
// concurrent use.
type Bill struct {
	Items      []Item   `json:"items"`
	People     []Person `json:"people"`
	TaxPercent float64  `json:"taxPercent"`
	TipPercent float64  `json:"tipPercent"`

	newID func() string
}

// NewBill seeds one item per dish, priced from Price and falling back to
// ConvertedPrice, and a single default person.
func NewBill(dishes []menu.Dish) *Bill {
	b := &Bill{
		TaxPercent: DefaultTaxPercent,
		TipPercent: DefaultTipPercent,
		newID:      uuid.NewString,
	}
	for _, d := range dishes {
		text := firstNonEmpty(d.Price, d.ConvertedPrice, "0")
		b.Items = append(b.Items, Item{
			ID:         d.ID,
			Name:       d.Name,
			PriceText:  text,
			Price:      ParsePrice(text),
			AssignedTo: []string{},
		})
	}
	b.People = []Person{{ID: b.newID(), Name: DefaultPersonName, Accent: PersonStyles[0]}}
	return b
}

// AddPerson appends a person with the next accent in rotation.
func (b *Bill) AddPerson(name string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, ErrEmptyName
	}
	p := Person{
		ID:     b.nextID(),
		Name:   name,
		Accent: PersonStyles[len(b.People)%len(PersonStyles)],
	}
	b.People = append(b.People, p)
	return p, nil
}

// Rename changes a person's display name.
func (b *Bill) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	idx := b.personIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPerson, id)
	}
	b.People[idx].Name = name
	return nil
}

// RemovePerson drops a person and every assignment they held.
func (b *Bill) RemovePerson(id string) error {
	idx := b.personIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPerson, id)
	}
	if len(b.People) <= 1 {
		return ErrLastPerson
	}
	b.People = slices.Delete(b.People, idx, idx+1)
	for i := range b.Items {
		b.Items[i].AssignedTo = slices.DeleteFunc(b.Items[i].AssignedTo, func(pid string) bool { return pid == id })
	}
	return nil
}

// Toggle assigns personID to the item, or unassigns when already assigned.
// It reports whether the person is assigned afterwards.
func (b *Bill) Toggle(itemID, personID string) (bool, error) {
	if b.personIndex(personID) < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownPerson, personID)
	}
	idx := b.itemIndex(itemID)
	if idx < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	item := &b.Items[idx]
	if pos := slices.Index(item.AssignedTo, personID); pos >= 0 {
		item.AssignedTo = slices.Delete(item.AssignedTo, pos, pos+1)
		return false, nil
	}
	item.AssignedTo = append(item.AssignedTo, personID)
	return true, nil
}

// Assign replaces the assignee set of an item.
func (b *Bill) Assign(itemID string, personIDs ...string) error {
	idx := b.itemIndex(itemID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	assigned := make([]string, 0, len(personIDs))
	for _, pid := range personIDs {
		if b.personIndex(pid) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, pid)
		}
		if !slices.Contains(assigned, pid) {
			assigned = append(assigned, pid)
		}
	}
	b.Items[idx].AssignedTo = assigned
	return nil
}

// SetPrice overrides the parsed price of an item.
func (b *Bill) SetPrice(itemID string, price float64) error {
	if price < 0 {
		return ErrInvalidAmount
	}
	idx := b.itemIndex(itemID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	b.Items[idx].Price = price
	return nil
}

// SetRates sets tax and tip percentages.
func (b *Bill) SetRates(taxPercent, tipPercent float64) error {
	if taxPercent < 0 || taxPercent > 100 || tipPercent < 0 || tipPercent > 100 {
		return ErrInvalidRate
	}
	b.TaxPercent = taxPercent
	b.TipPercent = tipPercent
	return nil
}

// PersonByName finds a person case-insensitively.
func (b *Bill) PersonByName(name string) (Person, bool) {
	for _, p := range b.People {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Person{}, false
}

// Summary computes the current split.
func (b *Bill) Summary() Summary {
	return Split(b.Items, b.People, b.TaxPercent, b.TipPercent)
}

func (b *Bill) nextID() string {
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	return b.newID()
}

func (b *Bill) personIndex(id string) int {
	return slices.IndexFunc(b.People, func(p Person) bool { return p.ID == id })
}

func (b *Bill) itemIndex(id string) int {
	return slices.IndexFunc(b.Items, func(it Item) bool { return it.ID == id })
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
