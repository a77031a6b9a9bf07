package menu

// ImageState is the whole image portion of a dish, replaced as one unit.
type ImageState struct {
	url     string
	loading bool
	failed  bool
}

// ImageLoading marks a generation as requested.
func ImageLoading() ImageState { return ImageState{loading: true} }

// ImageReady records a generated image and clears loading and failure.
func ImageReady(url string) ImageState { return ImageState{url: url} }

// ImageFailed clears loading and flags the failure for a manual retry.
func ImageFailed() ImageState { return ImageState{failed: true} }

// DishPatch lists the fields one update changes. Nil fields are left alone.
type DishPatch struct {
	Image              *ImageState
	Recipe             *Recipe
	LoadingRecipe      *bool
	Translation        *Translation
	ClearTranslation   bool
	LoadingTranslation *bool
}

// Apply returns d with the patch applied.
func (p DishPatch) Apply(d Dish) Dish {
	if p.Image != nil {
		d.GeneratedImageURL = p.Image.url
		d.LoadingImage = p.Image.loading
		d.GenerationFailed = p.Image.failed
	}
	if p.Recipe != nil {
		recipe := *p.Recipe
		d.Recipe = &recipe
	}
	if p.LoadingRecipe != nil {
		d.LoadingRecipe = *p.LoadingRecipe
	}
	if p.ClearTranslation {
		d.Translation = nil
	}
	if p.Translation != nil {
		translation := *p.Translation
		d.Translation = &translation
	}
	if p.LoadingTranslation != nil {
		d.LoadingTranslation = *p.LoadingTranslation
	}
	return d
}

// Flag is a helper for the *bool patch fields.
func Flag(v bool) *bool { return &v }

// Identified is implemented by every item kind.
type Identified interface {
	Dish | NutritionItem
}

func idOf[T Identified](item T) string {
	switch v := any(item).(type) {
	case Dish:
		return v.ID
	case NutritionItem:
		return v.ID
	}
	return ""
}

// MergeByID returns a copy of items where only the item with id is replaced
// by apply(item). Every other element is copied unchanged. When id is absent
// the copy equals the input and ok is false.
func MergeByID[T Identified](items []T, id string, apply func(T) T) (out []T, ok bool) {
	out = make([]T, len(items))
	copy(out, items)
	for i := range out {
		if idOf(out[i]) == id {
			out[i] = apply(out[i])
			return out, true
		}
	}
	return out, false
}

// MergeDish applies a DishPatch to the dish with id.
func MergeDish(dishes []Dish, id string, patch DishPatch) ([]Dish, bool) {
	return MergeByID(dishes, id, patch.Apply)
}

// Find returns the item with id.
func Find[T Identified](items []T, id string) (T, bool) {
	for _, item := range items {
		if idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
