package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerOut receives spinner frames. Tests point it elsewhere.
var spinnerOut io.Writer = os.Stderr

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// spinner animates one line on spinnerOut until stopped or until the
// context it was started with ends. It wipes the line when it finishes.
type spinner struct {
	w      io.Writer
	label  string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// startSpinner draws label behind a spinner right away.
func startSpinner(ctx context.Context, label string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{w: spinnerOut, label: label, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()

	drawn := 0
	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			if drawn > 0 {
				fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", drawn))
			}
			return
		case <-tick.C:
			glyph := string(spinnerFrames[frame%len(spinnerFrames)])
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.label))
			drawn = len([]rune(s.label)) + 2
		}
	}
}

// stop ends the animation and waits for the line to be wiped. Repeated
// calls are no-ops.
func (s *spinner) stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// withSpinner runs fn behind a spinner labelled label.
func withSpinner(ctx context.Context, label string, fn func() error) error {
	s := startSpinner(ctx, label)
	defer s.stop()
	return fn()
}
