package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"menuviz/internal/logging"
	"menuviz/internal/menu"
	"menuviz/internal/services"
)

// NothingToRead is spoken when there are no results.
const NothingToRead = "There is nothing to read yet."

const waitDelay = 2 * time.Second

// Text flattens the current results into one utterance.
func Text(mode menu.Mode, dishes []menu.Dish, items []menu.NutritionItem) string {
	if mode == menu.ModeNutrition && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, fmt.Sprintf("%s, %s.", it.Name, it.Calories))
		}
		return "Here is the nutrition analysis. " + strings.Join(parts, " ")
	}
	if mode != menu.ModeNutrition && len(dishes) > 0 {
		parts := make([]string, 0, len(dishes))
		for _, d := range dishes {
			parts = append(parts, fmt.Sprintf("%s, %s.", d.Name, d.Price))
		}
		return "Here is the menu. " + strings.Join(parts, " ")
	}
	return NothingToRead
}

// Speaker reads text aloud through an external command, passing the text on
// stdin. "{text}" in args is replaced with the text instead. Without a
// command the text is written to the fallback writer.
type Speaker struct {
	command  string
	args     []string
	fallback io.Writer
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker builds a speaker. fallback receives text when command is empty.
func NewSpeaker(command string, args []string, fallback io.Writer, logger *slog.Logger) *Speaker {
	return &Speaker{
		command:  strings.TrimSpace(command),
		args:     append([]string(nil), args...),
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "speech"),
	}
}

// Speak reads text and blocks until done or ctx ends.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if s.command == "" {
		if s.fallback == nil {
			return nil
		}
		_, err := fmt.Fprintln(s.fallback, text)
		return err
	}
	args, usesStdin := expandArgs(s.args, text)
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.WaitDelay = waitDelay
	if usesStdin {
		cmd.Stdin = strings.NewReader(text)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "speech", "speak",
			fmt.Sprintf("%s failed: %s", s.command, strings.TrimSpace(string(output))), err)
	}
	return nil
}

func expandArgs(args []string, text string) ([]string, bool) {
	out := make([]string, len(args))
	stdin := true
	for i, a := range args {
		if strings.Contains(a, "{text}") {
			stdin = false
			a = strings.ReplaceAll(a, "{text}", text)
		}
		out[i] = a
	}
	return out, stdin
}

// Toggle stops current playback, or starts reading text in the background.
// It reports whether playback is now running.
func (s *Speaker) Toggle(ctx context.Context, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		if err := s.Speak(runCtx, text); err != nil && runCtx.Err() == nil {
			logging.WarnWithContext(s.logger, "speech playback failed", "speech_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "results not read aloud"),
			)
		}
		s.mu.Lock()
		if s.done == done {
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		cancel()
	}()
	return true
}

// Stop ends background playback and reports whether any was running.
func (s *Speaker) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// Speaking reports whether background playback is running.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Wait blocks until background playback finishes.
func (s *Speaker) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Buffer is pending chat input that recognized speech is appended to.
type Buffer struct {
	mu   sync.Mutex
	text string
}

// Append adds recognized text separated by a single space.
func (b *Buffer) Append(text string) string {
	text = strings.TrimSpace(text)
	b.mu.Lock()
	defer b.mu.Unlock()
	if text == "" {
		return b.text
	}
	if b.text == "" {
		b.text = text
	} else {
		b.text += " " + text
	}
	return b.text
}

// Set replaces the pending input.
func (b *Buffer) Set(text string) {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
}

// Take returns the pending input and clears it.
func (b *Buffer) Take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := b.text
	b.text = ""
	return text
}

// String returns the pending input.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
