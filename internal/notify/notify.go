// Package notify shows transient success and error banners to the user.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notifier is the user-facing notification surface.
type Notifier interface {
	Success(message string)
	Error(message string)
}

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			PaddingLeft(1)
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			PaddingLeft(1)
)

// Banner writes styled one-line banners to a writer.
type Banner struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBanner creates a Banner writing to w.
func NewBanner(w io.Writer) *Banner {
	return &Banner{w: w}
}

// Success prints a success banner.
func (b *Banner) Success(message string) {
	b.print(successStyle.Render("✓ " + message))
}

// Error prints an error banner.
func (b *Banner) Error(message string) {
	b.print(errorStyle.Render("✗ " + message))
}

func (b *Banner) print(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintln(b.w, line)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

// Success records a success message.
func (r *Recorder) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, message)
}

// Error records an error message.
func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

// Successes returns a copy of the recorded success messages.
func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Errors returns a copy of the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}

// Discard drops every notification.
var Discard Notifier = discard{}
