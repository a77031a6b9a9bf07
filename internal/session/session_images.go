package session

import (
	"context"
	"fmt"

	"menuviz/internal/analytics"
	"menuviz/internal/dispatch"
	"menuviz/internal/menu"
	"menuviz/internal/services"
)

// NotifyVisible is the visibility trigger. It enqueues image generation for
// the dish unless it already has an image, is loading, or has failed. It
// reports whether a task was queued.
func (s *Session) NotifyVisible(id string) (bool, error) {
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	if !ok {
		s.mu.Unlock()
		return false, notFound("notify visible", id)
	}
	if !dish.NeedsImage() {
		s.mu.Unlock()
		return false, nil
	}
	return s.enqueueLocked(dish), nil
}

// RequestImage is the manual retry. It is ignored while the dish is loading.
func (s *Session) RequestImage(id string) (bool, error) {
	s.mu.Lock()
	dish, ok := menu.Find(s.dishes, id)
	if !ok {
		s.mu.Unlock()
		return false, notFound("request image", id)
	}
	if dish.LoadingImage {
		s.mu.Unlock()
		return false, nil
	}
	return s.enqueueLocked(dish), nil
}

// enqueueLocked marks the dish loading and hands it to the dispatcher while
// still holding s.mu, then unlocks it. Ids the dispatcher still holds are
// skipped without touching the dish.
func (s *Session) enqueueLocked(dish menu.Dish) bool {
	defer s.mu.Unlock()
	if s.dispatcher.Active(dish.ID) {
		return false
	}
	loading := menu.ImageLoading()
	s.patchDishLocked(dish.ID, menu.DishPatch{Image: &loading})
	if s.dispatcher.Enqueue(dispatch.Task{ID: dish.ID, Name: dish.Name, Description: dish.Description}) {
		return true
	}
	s.dishes, _ = menu.MergeByID(s.dishes, dish.ID, func(d menu.Dish) menu.Dish {
		d.GeneratedImageURL = dish.GeneratedImageURL
		d.LoadingImage = dish.LoadingImage
		d.GenerationFailed = dish.GenerationFailed
		return d
	})
	return false
}

func (s *Session) generateImage(ctx context.Context, task dispatch.Task) (string, error) {
	if s.deps.Images == nil {
		return "", services.Wrap(services.ErrConfiguration, "session", "generate image", "no image generator configured", nil)
	}
	return s.deps.Images.Generate(ctx, task.Name, task.Description)
}

func (s *Session) settleImage(task dispatch.Task, ref string, err error) {
	state := menu.ImageReady(ref)
	if err != nil {
		state = menu.ImageFailed()
	}
	if !s.patchDish(task.ID, menu.DishPatch{Image: &state}) {
		return
	}
	if err != nil {
		s.track(analytics.ErrorOccurred(analytics.ErrorTypeImage, err.Error(), task.Name))
		return
	}
	s.track(analytics.ImageGenerated(task.Name))
}

func notFound(op, id string) error {
	return services.Wrap(services.ErrNotFound, "session", op, fmt.Sprintf("item %q not found", id), nil)
}
