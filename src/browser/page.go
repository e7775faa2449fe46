package browser

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("element not found")

type Checkbox struct {
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// Page is one rendered, navigable browser tab. Every call mutates or reads the
// same tab, so a Page must not be shared between goroutines.
type Page interface {
	// Navigate loads url and returns once the network has gone idle.
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	// HTML returns the serialized document as currently rendered.
	HTML(ctx context.Context) (string, error)
	WaitReady(ctx context.Context, sel string) error
	SetValue(ctx context.Context, sel, value string) error
	// Click clicks sel and, when the click triggers a navigation, waits for
	// the new page to go idle.
	Click(ctx context.Context, sel string) error
	Checkboxes(ctx context.Context, sel string) ([]Checkbox, error)
	// Toggle flips the checked state of sel without waiting for navigation.
	Toggle(ctx context.Context, sel string) error
	Close() error
}
