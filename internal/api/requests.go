package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"menuviz/internal/billsplit"
	"menuviz/internal/dietary"
	"menuviz/internal/menu"
	"menuviz/internal/services"
)

// ScanRequest starts a scan from an uploaded image.
type ScanRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required,base64"`
	MimeType    string `json:"mime_type" validate:"omitempty,oneof=image/jpeg image/jpg image/png image/webp image/gif image/heic"`
	Mode        string `json:"mode" validate:"omitempty,oneof=menu nutrition visualizer"`
}

// Image decodes the uploaded bytes.
func (r ScanRequest) Image() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "decode image", "image_base64 is not valid base64", err)
	}
	return data, nil
}

// ParsedMode returns the requested mode, or "" when none was given.
func (r ScanRequest) ParsedMode() (menu.Mode, error) {
	if strings.TrimSpace(r.Mode) == "" {
		return "", nil
	}
	return menu.ParseMode(r.Mode)
}

// ChatRequest is one concierge question.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// LanguageRequest changes the target language.
type LanguageRequest struct {
	Code string `json:"code" validate:"required,min=2,max=16"`
}

// FavoriteRequest toggles a dish favorite.
type FavoriteRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

// CaptureRequest grabs a frame from a camera and scans it.
type CaptureRequest struct {
	Device string `json:"device" validate:"omitempty,startswith=/dev/"`
	Mode   string `json:"mode" validate:"omitempty,oneof=menu nutrition visualizer"`
}

// PreferencesRequest replaces the dietary preferences.
type PreferencesRequest struct {
	Vegan           bool     `json:"isVegan"`
	Vegetarian      bool     `json:"isVegetarian"`
	GlutenFree      bool     `json:"isGlutenFree"`
	DairyFree       bool     `json:"isDairyFree"`
	AvoidPeanuts    bool     `json:"avoidPeanuts"`
	AvoidShellfish  bool     `json:"avoidShellfish"`
	CustomAllergies []string `json:"customAllergies" validate:"max=50,dive,required,max=60"`
}

// Preferences converts the request, dropping duplicate allergies.
func (r PreferencesRequest) Preferences() dietary.Preferences {
	p := dietary.Preferences{
		Vegan:          r.Vegan,
		Vegetarian:     r.Vegetarian,
		GlutenFree:     r.GlutenFree,
		DairyFree:      r.DairyFree,
		AvoidPeanuts:   r.AvoidPeanuts,
		AvoidShellfish: r.AvoidShellfish,
	}
	for _, a := range r.CustomAllergies {
		p = p.AddAllergy(a)
	}
	return p
}

// BillPerson names one diner. ID is chosen by the client and only used to
// reference the person in Assignments.
type BillPerson struct {
	ID   string `json:"id" validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=40"`
}

// BillRequest describes a split over the current dishes.
type BillRequest struct {
	TaxPercent  float64             `json:"tax_percent" validate:"gte=0,lte=100"`
	TipPercent  *float64            `json:"tip_percent" validate:"omitempty,gte=0,lte=100"`
	People      []BillPerson        `json:"people" validate:"max=20,dive"`
	Assignments map[string][]string `json:"assignments" validate:"dive,keys,required,endkeys,dive,required"`
	Prices      map[string]float64  `json:"prices" validate:"dive,keys,required,endkeys,gte=0"`
}

// Apply edits bill to match the request. The first person takes over the
// bill's default diner; unknown item or person ids are ErrNotFound.
func (r BillRequest) Apply(bill *billsplit.Bill) error {
	ids := make(map[string]string, len(r.People))
	for i, p := range r.People {
		if _, dup := ids[p.ID]; dup {
			return services.Wrap(services.ErrValidation, "api", "bill", fmt.Sprintf("duplicate person id %q", p.ID), nil)
		}
		if i == 0 {
			if err := bill.Rename(bill.People[0].ID, p.Name); err != nil {
				return billError(err)
			}
			ids[p.ID] = bill.People[0].ID
			continue
		}
		added, err := bill.AddPerson(p.Name)
		if err != nil {
			return billError(err)
		}
		ids[p.ID] = added.ID
	}

	for itemID, price := range r.Prices {
		if err := bill.SetPrice(itemID, price); err != nil {
			return billError(err)
		}
	}
	for itemID, people := range r.Assignments {
		resolved := make([]string, 0, len(people))
		for _, pid := range people {
			id, ok := ids[pid]
			if !ok {
				return services.Wrap(services.ErrNotFound, "api", "bill", fmt.Sprintf("person %q not found", pid), nil)
			}
			resolved = append(resolved, id)
		}
		if err := bill.Assign(itemID, resolved...); err != nil {
			return billError(err)
		}
	}

	tip := bill.TipPercent
	if r.TipPercent != nil {
		tip = *r.TipPercent
	}
	if err := bill.SetRates(r.TaxPercent, tip); err != nil {
		return billError(err)
	}
	return nil
}

func billError(err error) error {
	switch {
	case errors.Is(err, billsplit.ErrUnknownItem), errors.Is(err, billsplit.ErrUnknownPerson):
		return services.Wrap(services.ErrNotFound, "api", "bill", err.Error(), err)
	default:
		return services.Wrap(services.ErrValidation, "api", "bill", err.Error(), err)
	}
}
