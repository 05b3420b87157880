package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner represents a spinning progress indicator for long-running
// operations like snapshot creation and archive uploads.
type Spinner struct {
	mu      sync.Mutex
	writer  io.Writer
	title   string
	chars   []string
	index   int
	active  bool
	ticker  *time.Ticker
	done    chan bool
	noColor bool
}

// NewSpinner creates a new spinner
func NewSpinner(title string, noColor bool) *Spinner {
	return &Spinner{
		writer:  os.Stderr,
		title:   title,
		chars:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan bool, 1),
		noColor: noColor,
	}
}

// Start starts the spinner
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}

	s.active = true
	s.ticker = time.NewTicker(100 * time.Millisecond)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.render()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop stops the spinner and clears its line
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	s.active = false
	s.ticker.Stop()
	s.done <- true

	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", 100))
}

// Update updates the spinner title
func (s *Spinner) Update(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// render renders the spinner
func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	char := s.chars[s.index]
	s.index = (s.index + 1) % len(s.chars)

	var output strings.Builder
	output.WriteString(s.colorize(char, color.FgCyan))
	output.WriteString(" ")
	output.WriteString(s.colorize(s.title, color.FgWhite))

	fmt.Fprintf(s.writer, "\r%s", output.String())
}

// colorize applies color if colors are enabled
func (s *Spinner) colorize(text string, attrs ...color.Attribute) string {
	if s.noColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// StepProgress represents a step-based progress indicator. The rollback
// command uses it to show restore steps as they settle.
type StepProgress struct {
	mu      sync.Mutex
	writer  io.Writer
	title   string
	steps   []string
	current int
	total   int
	noColor bool
}

// NewStepProgress creates a new step progress indicator
func NewStepProgress(title string, steps []string, noColor bool) *StepProgress {
	return &StepProgress{
		writer:  os.Stderr,
		title:   title,
		steps:   steps,
		total:   len(steps),
		noColor: noColor,
	}
}

// NextStep advances to the next step
func (s *StepProgress) NextStep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < s.total {
		s.current++
	}
	s.render()
}

// SetStep sets the current step by index
func (s *StepProgress) SetStep(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= 0 && index <= s.total {
		s.current = index
	}
	s.render()
}

// Finish completes the step progress
func (s *StepProgress) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.total
	s.render()
	fmt.Fprintln(s.writer)
}

// render renders the step progress
func (s *StepProgress) render() {
	var output strings.Builder

	if s.title != "" {
		output.WriteString(s.colorize(s.title+":\n", color.FgCyan, color.Bold))
	}

	for i, step := range s.steps {
		var icon, stepColor string

		if i < s.current {
			icon = "✅"
			stepColor = s.colorize(step, color.FgGreen)
		} else if i == s.current {
			icon = "🔄"
			stepColor = s.colorize(step, color.FgYellow, color.Bold)
		} else {
			icon = "⏳"
			stepColor = s.colorize(step, color.FgWhite)
		}

		output.WriteString(fmt.Sprintf("%s %s\n", icon, stepColor))
	}

	fmt.Fprintf(s.writer, "\r%s", output.String())
}

// colorize applies color if colors are enabled
func (s *StepProgress) colorize(text string, attrs ...color.Attribute) string {
	if s.noColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}
