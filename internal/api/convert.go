package api

import (
	"time"

	"menuviz/internal/billsplit"
	"menuviz/internal/dietary"
	"menuviz/internal/history"
	"menuviz/internal/menu"
	"menuviz/internal/session"
)

// FromDish attaches the derived views to a dish.
func FromDish(dish menu.Dish, verdict dietary.Verdict, favorite bool) Dish {
	if verdict.Status == "" {
		verdict.Status = dietary.StatusNeutral
	}
	return Dish{Dish: dish, Safety: verdict, Favorite: favorite}
}

// FromSnapshot converts the session view. isFavorite may be nil.
func FromSnapshot(snap session.Snapshot, verdicts map[string]dietary.Verdict, isFavorite func(name string) bool) ItemsResponse {
	resp := ItemsResponse{
		State:              string(snap.State),
		Mode:               string(snap.Mode),
		Restaurant:         snap.Restaurant,
		Dishes:             make([]Dish, 0, len(snap.Dishes)),
		Nutrition:          snap.Nutrition,
		DetectedLanguage:   snap.DetectedLanguage,
		SuggestTranslation: snap.SuggestTranslation,
	}
	if resp.Nutrition == nil {
		resp.Nutrition = []menu.NutritionItem{}
	}
	for _, d := range snap.Dishes {
		fav := isFavorite != nil && isFavorite(d.Name)
		resp.Dishes = append(resp.Dishes, FromDish(d, verdicts[d.ID], fav))
	}
	return resp
}

// FromHistory converts saved scans.
func FromHistory(list history.List) HistoryResponse {
	resp := HistoryResponse{Sessions: make([]HistoryEntry, 0, len(list))}
	for _, s := range list {
		resp.Sessions = append(resp.Sessions, HistoryEntry{
			ID:         s.ID,
			CreatedAt:  formatTime(s.Time()),
			Mode:       string(s.Mode),
			Summary:    s.Summary,
			Restaurant: s.Restaurant,
			ItemCount:  s.Len(),
		})
	}
	return resp
}

// FromBill converts a bill and its computed split.
func FromBill(bill *billsplit.Bill, summary billsplit.Summary) BillResponse {
	resp := BillResponse{
		Items:      bill.Items,
		People:     make([]PersonShare, 0, len(summary.People)),
		TaxPercent: bill.TaxPercent,
		TipPercent: bill.TipPercent,
		GrandTotal: summary.GrandTotal,
	}
	if resp.Items == nil {
		resp.Items = []billsplit.Item{}
	}
	for _, pt := range summary.People {
		resp.People = append(resp.People, PersonShare{
			ID:       pt.Person.ID,
			Name:     pt.Person.Name,
			Color:    pt.Person.Accent.Color,
			Subtotal: pt.Subtotal,
			Tax:      pt.Tax,
			Tip:      pt.Tip,
			Total:    pt.Total,
		})
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
