// Package driver abstracts the browser automation used by campaigns.
package driver

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a selector matches nothing.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when WaitFor gives up.
	ErrTimeout = errors.New("wait timed out")
	// ErrInvalidHandle is returned when a handle does not belong to the driver.
	ErrInvalidHandle = errors.New("invalid element handle")
)

// Handle is an opaque reference to an element on the current page.
type Handle any

// Match reports which selector satisfied a WaitFor call.
type Match struct {
	Selector string
	Handle   Handle
}

// Driver is the automation capability consumed by campaigns. A Driver owns one
// page and is not safe for concurrent use.
type Driver interface {
	Open(ctx context.Context, url string) error
	Find(ctx context.Context, selector string) (Handle, error)
	FindAll(ctx context.Context, selector string) ([]Handle, error)
	Activate(ctx context.Context, h Handle) error
	ReadText(ctx context.Context, h Handle) (string, error)
	ReadAttribute(ctx context.Context, h Handle, name string) (string, error)
	TypeText(ctx context.Context, h Handle, text string) error
	Submit(ctx context.Context, h Handle) error
	// WaitFor blocks until one of the selectors matches, in the order given, or the timeout elapses.
	WaitFor(ctx context.Context, timeout time.Duration, selectors ...string) (Match, error)
	// Scroll scrolls the matched container to its bottom and reports whether its content grew.
	Scroll(ctx context.Context, selector string) (bool, error)
	Close() error
}

// Factory creates a Driver for one campaign run.
type Factory func(ctx context.Context) (Driver, error)
