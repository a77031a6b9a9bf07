package restaurant

import (
	"context"
	"errors"
	"testing"

	"menuviz/internal/services/llm"
)

type fakeChatter struct {
	reply string
	err   error
}

func (f fakeChatter) Chat(context.Context, []llm.Message) (string, error) {
	return f.reply, f.err
}

func TestFromExtraction(t *testing.T) {
	d := FromExtraction("Luigi's Trattoria", "New York, NY")
	if d.Summary != "Menu from Luigi's Trattoria" {
		t.Fatalf("unexpected summary %q", d.Summary)
	}
	want := "https://www.google.com/maps/search/?api=1&query=Luigi%27s+Trattoria+New+York%2C+NY"
	if d.MapLink != want {
		t.Fatalf("MapLink = %q, want %q", d.MapLink, want)
	}

	noLoc := FromExtraction("Luigi's", "")
	if noLoc.MapLink != "" {
		t.Fatal("map link requires a location")
	}
	if empty := FromExtraction("", ""); empty.Summary != "" {
		t.Fatalf("unnamed menu should have no summary, got %q", empty.Summary)
	}
}

func TestParseRating(t *testing.T) {
	tests := map[string]float64{
		"Rated 4.5 stars on most sites": 4.5,
		"a solid 4 Stars":               4,
	}
	for text, want := range tests {
		got, ok := ParseRating(text)
		if !ok || got != want {
			t.Errorf("ParseRating(%q) = %v, %v", text, got, ok)
		}
	}
	if _, ok := ParseRating("no rating here"); ok {
		t.Fatal("expected no rating")
	}
}

func TestLookup(t *testing.T) {
	d := Lookup(context.Background(), fakeChatter{reply: "Beloved trattoria. 4.2 stars."}, "Luigi's", "")
	if d.Rating == nil || *d.Rating != 4.2 || d.Summary != "Beloved trattoria. 4.2 stars." {
		t.Fatalf("unexpected details %+v", d)
	}
	if d.MapLink == "" {
		t.Fatal("lookup should provide a map link")
	}

	failed := Lookup(context.Background(), fakeChatter{err: errors.New("down")}, "Luigi's", "Rome")
	if failed.Summary != LookupFailed || failed.Rating != nil {
		t.Fatalf("unexpected failure details %+v", failed)
	}
}
