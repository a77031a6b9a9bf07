package extraction

import (
	"context"
	"errors"
	"testing"

	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
)

var jpegBytes = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00\x01rest-of-image")

type fakeVision struct {
	content  string
	err      error
	calls    int
	mimeType string
	prompt   string
}

func (f *fakeVision) CompleteVisionJSON(_ context.Context, _, userPrompt string, _ []byte, mimeType string) (string, error) {
	f.calls++
	f.mimeType = mimeType
	f.prompt = userPrompt
	return f.content, f.err
}

func TestResolveMimeType(t *testing.T) {
	tests := []struct {
		name     string
		image    []byte
		declared string
		want     string
		wantErr  bool
	}{
		{name: "declared jpeg", image: jpegBytes, declared: "image/jpeg", want: "image/jpeg"},
		{name: "jpg alias", image: jpegBytes, declared: "image/JPG", want: "image/jpeg"},
		{name: "params stripped", image: jpegBytes, declared: "image/png; charset=binary", want: "image/png"},
		{name: "sniffed jpeg", image: jpegBytes, want: "image/jpeg"},
		{name: "sniffed png", image: []byte("\x89PNG\r\n\x1a\n0000"), want: "image/png"},
		{name: "sniffed heic", image: []byte("\x00\x00\x00\x18ftypheic0000"), want: "image/heic"},
		{name: "pdf rejected", image: []byte("%PDF-1.7"), declared: "application/pdf", wantErr: true},
		{name: "text rejected", image: []byte("hello world"), wantErr: true},
		{name: "empty rejected", image: nil, declared: "image/jpeg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveMimeType(tt.image, tt.declared)
			if tt.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMenu(t *testing.T) {
	fake := &fakeVision{content: "Here you go:\n```json\n" + `{
		"restaurantName": "Luigi's Trattoria",
		"restaurantLocation": null,
		"dishes": [
			{"name": "Carbonara", "originalName": "Spaghetti alla Carbonara", "description": "Creamy pasta", "tags": ["Contains Egg"], "price": "€14", "nutrition": {"calories": "700 cal", "macronutrients": "Protein: 25g", "vitamins": ["B12"], "safety": "Contains egg"}},
			{"name": "Tiramisu", "description": "Coffee dessert", "tags": [], "price": "€7"}
		]
	}` + "\n```"}
	ex := New(fake, logging.NewNop())

	res, err := ex.Extract(context.Background(), menu.ModeMenu, jpegBytes, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fake.mimeType != "image/jpeg" {
		t.Fatalf("expected sniffed mime, got %q", fake.mimeType)
	}
	if res.RestaurantName != "Luigi's Trattoria" || res.RestaurantLocation != "" {
		t.Fatalf("unexpected restaurant: %+v", res)
	}
	if res.Count() != 2 || res.Dishes[0].Nutrition == nil || res.Dishes[0].Nutrition.Calories != "700 cal" {
		t.Fatalf("unexpected dishes: %+v", res.Dishes)
	}
}

func TestExtractNutritionAcceptsBothShapes(t *testing.T) {
	for _, content := range []string{
		`{"items": [{"name": "Apple", "calories": "95 kcal"}]}`,
		`[{"name": "Apple", "calories": "95 kcal"}]`,
	} {
		fake := &fakeVision{content: content}
		res, err := New(fake, nil).Extract(context.Background(), menu.ModeNutrition, jpegBytes, "image/jpeg")
		if err != nil {
			t.Fatalf("Extract(%s): %v", content, err)
		}
		if res.Count() != 1 || res.Items[0].Name != "Apple" {
			t.Fatalf("unexpected items: %+v", res.Items)
		}
		if fake.prompt != nutritionUserPrompt {
			t.Fatal("nutrition prompt not used")
		}
	}
}

func TestExtractMalformedPayloadFailsScan(t *testing.T) {
	for _, content := range []string{"I cannot read this menu", `{"restaurantName": "X"}`} {
		fake := &fakeVision{content: content}
		_, err := New(fake, nil).Extract(context.Background(), menu.ModeMenu, jpegBytes, "image/jpeg")
		if !errors.Is(err, services.ErrMalformedPayload) {
			t.Fatalf("content %q: expected malformed payload, got %v", content, err)
		}
	}
}

func TestExtractBackendErrorWrapped(t *testing.T) {
	fake := &fakeVision{err: errors.New("status 502")}
	_, err := New(fake, nil).Extract(context.Background(), menu.ModeMenu, jpegBytes, "image/jpeg")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExtractRejectsUnsupportedTypeBeforeCalling(t *testing.T) {
	fake := &fakeVision{content: `{"dishes": []}`}
	_, err := New(fake, nil).Extract(context.Background(), menu.ModeMenu, []byte("%PDF-1.7"), "application/pdf")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("backend should not be called, got %d calls", fake.calls)
	}
}
