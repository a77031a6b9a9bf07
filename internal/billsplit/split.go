package billsplit

// Accent is the visual style a person is drawn with.
type Accent struct {
	Color    string `json:"color"`
	Gradient string `json:"gradient"`
}

// PersonStyles is the accent rotation for people in order of addition.
var PersonStyles = [8]Accent{
	{Color: "bg-blue-500", Gradient: "from-blue-500 to-cyan-500"},
	{Color: "bg-emerald-500", Gradient: "from-emerald-500 to-teal-500"},
	{Color: "bg-purple-500", Gradient: "from-purple-500 to-pink-500"},
	{Color: "bg-orange-500", Gradient: "from-orange-500 to-red-500"},
	{Color: "bg-pink-500", Gradient: "from-pink-500 to-rose-500"},
	{Color: "bg-cyan-500", Gradient: "from-cyan-500 to-blue-500"},
	{Color: "bg-yellow-500", Gradient: "from-yellow-500 to-orange-500"},
	{Color: "bg-red-500", Gradient: "from-red-500 to-pink-500"},
}

// TipPresets are the quick-pick tip percentages.
var TipPresets = []float64{0, 10, 15, 18, 20}

// Person is someone sharing the bill.
type Person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Accent Accent `json:"accent"`
}

// Item is one priced line of the bill.
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PriceText  string   `json:"priceText"`
	Price      float64  `json:"price"`
	AssignedTo []string `json:"assignedTo"`
}

// Totals is one person's share.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
}

// PersonTotals pairs a person with their share.
type PersonTotals struct {
	Person Person `json:"person"`
	Totals
}

// Summary is the computed split.
type Summary struct {
	People     []PersonTotals `json:"people"`
	GrandTotal float64        `json:"grandTotal"`
}

// For returns the share of person id.
func (s Summary) For(id string) (Totals, bool) {
	for _, pt := range s.People {
		if pt.Person.ID == id {
			return pt.Totals, true
		}
	}
	return Totals{}, false
}

// Split divides every item evenly across its assignees and adds tax and tip
// as percentages of each subtotal. Items without assignees, and assignees not
// in people, contribute nothing.
func Split(items []Item, people []Person, taxPercent, tipPercent float64) Summary {
	subtotals := make(map[string]float64, len(people))
	for _, p := range people {
		subtotals[p.ID] = 0
	}
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		share := item.Price / float64(len(item.AssignedTo))
		for _, id := range item.AssignedTo {
			if _, ok := subtotals[id]; ok {
				subtotals[id] += share
			}
		}
	}

	summary := Summary{People: make([]PersonTotals, 0, len(people))}
	for _, p := range people {
		sub := subtotals[p.ID]
		t := Totals{
			Subtotal: sub,
			Tax:      sub * taxPercent / 100,
			Tip:      sub * tipPercent / 100,
		}
		t.Total = t.Subtotal + t.Tax + t.Tip
		summary.GrandTotal += t.Total
		summary.People = append(summary.People, PersonTotals{Person: p, Totals: t})
	}
	return summary
}
