package restaurant

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"menuviz/internal/services/llm"
)

// LookupFailed is the summary used when a reputation lookup fails.
const LookupFailed = "Could not retrieve restaurant details."

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

var ratingPattern = regexp.MustCompile(`(?i)(\d+(\.\d)?)\s*stars?`)

// Details describes where a menu came from.
type Details struct {
	Name     string   `json:"name"`
	Location string   `json:"location,omitempty"`
	Summary  string   `json:"summary"`
	Rating   *float64 `json:"rating,omitempty"`
	MapLink  string   `json:"mapLink,omitempty"`
}

// FromExtraction builds details from the names the extractor read off the
// menu. The map link is only set when a location is known.
func FromExtraction(name, location string) Details {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	d := Details{Name: name, Location: location}
	if name != "" {
		d.Summary = "Menu from " + name
	}
	if location != "" {
		d.MapLink = MapLink(name, location)
	}
	return d
}

// MapLink returns a maps search URL for the restaurant.
func MapLink(name, location string) string {
	query := strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(location))
	return mapsSearchURL + url.QueryEscape(query)
}

// ParseRating extracts an "N stars" rating from free text.
func ParseRating(text string) (float64, bool) {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Chatter sends a transcript and returns the reply text.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Lookup asks the model for a short reputation report. It never fails;
// errors become the LookupFailed summary.
func Lookup(ctx context.Context, client Chatter, name, location string) Details {
	d := FromExtraction(name, location)
	if d.Name == "" || client == nil {
		d.Summary = LookupFailed
		return d
	}
	query := d.Name
	if d.Location != "" {
		query = fmt.Sprintf("%s in %s", d.Name, d.Location)
	}
	prompt := fmt.Sprintf(`Describe the restaurant %q. Give a short detective report (max 3 sentences) about its reputation, cuisine style, and star rating. Do not use markdown.`, query)
	text, err := client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		d.Summary = LookupFailed
		return d
	}
	d.Summary = text
	if rating, ok := ParseRating(text); ok {
		d.Rating = &rating
	}
	if d.MapLink == "" {
		d.MapLink = MapLink(d.Name, "")
	}
	return d
}
