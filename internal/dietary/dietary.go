package dietary

import (
	"slices"
	"strings"
)

// Preferences are the user's dietary restrictions.
type Preferences struct {
	Vegan           bool     `json:"isVegan"`
	Vegetarian      bool     `json:"isVegetarian"`
	GlutenFree      bool     `json:"isGlutenFree"`
	DairyFree       bool     `json:"isDairyFree"`
	AvoidPeanuts    bool     `json:"avoidPeanuts"`
	AvoidShellfish  bool     `json:"avoidShellfish"`
	CustomAllergies []string `json:"customAllergies"`
}

// Active reports whether any restriction is set.
func (p Preferences) Active() bool {
	return p.Vegan || p.Vegetarian || p.GlutenFree || p.DairyFree ||
		p.AvoidPeanuts || p.AvoidShellfish || len(p.CustomAllergies) > 0
}

// AddAllergy appends a custom allergy unless already present.
func (p Preferences) AddAllergy(name string) Preferences {
	name = strings.TrimSpace(name)
	if name == "" {
		return p
	}
	for _, existing := range p.CustomAllergies {
		if strings.EqualFold(existing, name) {
			return p
		}
	}
	p.CustomAllergies = append(slices.Clone(p.CustomAllergies), name)
	return p
}

// RemoveAllergy drops a custom allergy, matching case-insensitively.
func (p Preferences) RemoveAllergy(name string) Preferences {
	p.CustomAllergies = slices.DeleteFunc(slices.Clone(p.CustomAllergies), func(existing string) bool {
		return strings.EqualFold(existing, strings.TrimSpace(name))
	})
	return p
}

// Status is the safety classification of one dish.
type Status string

const (
	StatusSafe    Status = "safe"
	StatusUnsafe  Status = "unsafe"
	StatusNeutral Status = "neutral"
)

// SafeMessage is shown for dishes that explicitly fit the profile.
const SafeMessage = "Fits your profile"

// Verdict is a classification plus its user-facing message.
type Verdict struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

type family struct {
	enabled  func(Preferences) bool
	keywords []string
	issue    string
}

var families = []family{
	{func(p Preferences) bool { return p.Vegan }, []string{"meat", "animal", "dairy", "cheese", "egg"}, "Not Vegan"},
	{func(p Preferences) bool { return p.Vegetarian }, []string{"meat", "fish", "chicken", "beef", "pork"}, "Not Vegetarian"},
	{func(p Preferences) bool { return p.GlutenFree }, []string{"gluten", "bread", "pasta"}, "Contains Gluten"},
	{func(p Preferences) bool { return p.DairyFree }, []string{"dairy", "cheese", "milk", "cream"}, "Contains Dairy"},
	{func(p Preferences) bool { return p.AvoidPeanuts }, []string{"peanut", "nut"}, "Contains Nuts"},
	{func(p Preferences) bool { return p.AvoidShellfish }, []string{"shellfish", "crab", "lobster", "shrimp"}, "Contains Shellfish"},
}

// Classify checks a dish's tags against prefs. Unsafe findings win over safe
// confirmations. A keyword written as an absence marker ("Gluten-Free",
// "Nut-Free") is not a match, but other words in the same tag still are.
func Classify(tags []string, prefs Preferences) Verdict {
	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			lowered = append(lowered, tag)
		}
	}

	var issues []string
	for _, f := range families {
		if f.enabled(prefs) && anyTagContains(lowered, f.keywords) {
			issues = append(issues, f.issue)
		}
	}
	for _, allergy := range prefs.CustomAllergies {
		needle := strings.ToLower(strings.TrimSpace(allergy))
		if needle != "" && anyTagContains(lowered, []string{needle}) {
			issues = append(issues, "Contains "+strings.TrimSpace(allergy))
		}
	}
	if len(issues) > 0 {
		return Verdict{Status: StatusUnsafe, Message: strings.Join(issues, ", ")}
	}

	if prefs.Vegan && slices.Contains(lowered, "vegan") ||
		prefs.Vegetarian && (slices.Contains(lowered, "vegetarian") || slices.Contains(lowered, "vegan")) ||
		prefs.GlutenFree && anySubstring(lowered, "gluten-free") ||
		prefs.DairyFree && anySubstring(lowered, "dairy-free") {
		return Verdict{Status: StatusSafe, Message: SafeMessage}
	}
	return Verdict{Status: StatusNeutral}
}

func anyTagContains(tags, keywords []string) bool {
	for _, tag := range tags {
		for _, kw := range keywords {
			if mentions(tag, kw) {
				return true
			}
		}
	}
	return false
}

// mentions reports whether tag contains kw anywhere other than as a
// "<kw>-free" or "<kw> free" marker.
func mentions(tag, kw string) bool {
	if kw == "" {
		return false
	}
	for rest := tag; ; {
		i := strings.Index(rest, kw)
		if i < 0 {
			return false
		}
		after := rest[i+len(kw):]
		if !strings.HasPrefix(after, "-free") && !strings.HasPrefix(after, " free") {
			return true
		}
		rest = after
	}
}

func anySubstring(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}
