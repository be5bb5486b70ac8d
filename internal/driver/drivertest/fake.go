// Package drivertest provides a scriptable in-memory driver.Driver.
package drivertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/octobees/leads-prospector/internal/driver"
)

// Element is a fake DOM node. Reveals lists the nodes that become visible
// once the element is activated, keyed by selector.
type Element struct {
	Text        string
	Attrs       map[string]string
	Reveals     map[string][]*Element
	ActivateErr error
	TypeErr     error
	SubmitErr   error

	Typed     string
	Submitted bool
}

// Page is a fake document keyed by selector.
type Page struct {
	Elements map[string][]*Element
	// Growth is how many Scroll calls report new content before the page is exhausted.
	Growth int
}

// Driver is a driver.Driver backed by scripted pages.
type Driver struct {
	mu sync.Mutex

	// Pages maps a URL to its document; Default serves every other URL.
	Pages   map[string]*Page
	Default *Page

	OpenErr  func(url string) error
	WaitFunc func(ctx context.Context, timeout time.Duration, selectors []string) (driver.Match, error)

	current *Page
	panel   map[string][]*Element

	Opened  []string
	Submits []time.Time
	Closed  bool
}

// New returns an empty fake driver.
func New() *Driver {
	return &Driver{Pages: map[string]*Page{}}
}

// Factory returns a driver.Factory that always yields d.
func (d *Driver) Factory() driver.Factory {
	return func(context.Context) (driver.Driver, error) {
		return d, nil
	}
}

// FailingFactory returns a driver.Factory that cannot start.
func FailingFactory(err error) driver.Factory {
	return func(context.Context) (driver.Driver, error) {
		return nil, err
	}
}

// Open switches to the page registered for url, or Default when none is.
func (d *Driver) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Opened = append(d.Opened, url)
	if d.OpenErr != nil {
		if err := d.OpenErr(url); err != nil {
			return err
		}
	}
	page, ok := d.Pages[url]
	if !ok {
		page = d.Default
	}
	if page == nil {
		page = &Page{}
	}
	d.current = page
	d.panel = nil
	return nil
}

// Find returns the first element matching selector.
func (d *Driver) Find(ctx context.Context, selector string) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	els := d.lookup(selector)
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", selector, driver.ErrNotFound)
	}
	return els[0], nil
}

// FindAll returns every element matching selector on the current page.
func (d *Driver) FindAll(ctx context.Context, selector string) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	els := d.lookup(selector)
	handles := make([]driver.Handle, 0, len(els))
	for _, el := range els {
		handles = append(handles, el)
	}
	return handles, nil
}

// Activate shows the element Reveals panel, or fails with ActivateErr.
func (d *Driver) Activate(ctx context.Context, h driver.Handle) error {
	el, err := asElement(h)
	if err != nil {
		return err
	}
	if el.ActivateErr != nil {
		return el.ActivateErr
	}
	d.mu.Lock()
	d.panel = el.Reveals
	d.mu.Unlock()
	return nil
}

// ReadText returns the element text.
func (d *Driver) ReadText(ctx context.Context, h driver.Handle) (string, error) {
	el, err := asElement(h)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

// ReadAttribute returns the named attribute.
func (d *Driver) ReadAttribute(ctx context.Context, h driver.Handle, name string) (string, error) {
	el, err := asElement(h)
	if err != nil {
		return "", err
	}
	return el.Attrs[name], nil
}

// TypeText records text on the element.
func (d *Driver) TypeText(ctx context.Context, h driver.Handle, text string) error {
	el, err := asElement(h)
	if err != nil {
		return err
	}
	if el.TypeErr != nil {
		return el.TypeErr
	}
	d.mu.Lock()
	el.Typed = text
	d.mu.Unlock()
	return nil
}

// Submit records the submit time.
func (d *Driver) Submit(ctx context.Context, h driver.Handle) error {
	el, err := asElement(h)
	if err != nil {
		return err
	}
	if el.SubmitErr != nil {
		return el.SubmitErr
	}
	d.mu.Lock()
	el.Submitted = true
	d.Submits = append(d.Submits, time.Now())
	d.mu.Unlock()
	return nil
}

// WaitFor resolves immediately: the first selector present wins, otherwise driver.ErrTimeout.
func (d *Driver) WaitFor(ctx context.Context, timeout time.Duration, selectors ...string) (driver.Match, error) {
	if d.WaitFunc != nil {
		return d.WaitFunc(ctx, timeout, selectors)
	}
	if err := ctx.Err(); err != nil {
		return driver.Match{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, selector := range selectors {
		if els := d.lookup(selector); len(els) > 0 {
			return driver.Match{Selector: selector, Handle: els[0]}, nil
		}
	}
	return driver.Match{}, fmt.Errorf("%v: %w", selectors, driver.ErrTimeout)
}

// Scroll reports growth until the page Growth budget is spent.
func (d *Driver) Scroll(ctx context.Context, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.lookup(selector)) == 0 {
		return false, fmt.Errorf("%s: %w", selector, driver.ErrNotFound)
	}
	if d.current.Growth > 0 {
		d.current.Growth--
		return true, nil
	}
	return false, nil
}

// Close marks the driver closed.
func (d *Driver) Close() error {
	d.mu.Lock()
	d.Closed = true
	d.mu.Unlock()
	return nil
}

// SubmitTimes returns a copy of the instants at which Submit succeeded.
func (d *Driver) SubmitTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.Submits...)
}

// OpenedURLs returns a copy of every URL passed to Open.
func (d *Driver) OpenedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Opened...)
}

func (d *Driver) lookup(selector string) []*Element {
	if els, ok := d.panel[selector]; ok {
		return els
	}
	if d.current == nil {
		return nil
	}
	return d.current.Elements[selector]
}

func asElement(h driver.Handle) (*Element, error) {
	el, ok := h.(*Element)
	if !ok || el == nil {
		return nil, driver.ErrInvalidHandle
	}
	return el, nil
}

var _ driver.Driver = (*Driver)(nil)
