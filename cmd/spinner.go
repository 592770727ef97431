package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// spinner displays an animation while waiting for a reply
type spinner struct {
	out io.Writer

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func newSpinner(out io.Writer) *spinner {
	return &spinner{out: out}
}

// Start shows the spinner with label. Starting a running spinner is a no-op.
func (s *spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	done := make(chan struct{})
	s.done = done
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(frames) {
			fmt.Fprintf(s.out, "\r%s %s", frames[i], label)
			select {
			case <-done:
				// Clear the spinner line
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the spinner line and waits for the animation to end
func (s *spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done != nil {
		close(done)
		s.wg.Wait()
	}
}
