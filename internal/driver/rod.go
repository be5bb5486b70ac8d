package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Options configures the Chrome instance behind a RodDriver.
type Options struct {
	Headless          bool
	Bin               string
	ProfileDir        string
	NavigationTimeout time.Duration
	ScrollSettle      time.Duration
}

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	if o.ScrollSettle < 0 {
		o.ScrollSettle = 0
	}
	return o
}

// RodDriver drives a single Chrome page through the DevTools protocol.
type RodDriver struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *zap.Logger
}

// NewRodFactory returns a Factory that launches a fresh browser per run.
func NewRodFactory(opts Options, logger *zap.Logger) Factory {
	return func(ctx context.Context) (Driver, error) {
		return Launch(ctx, opts, logger)
	}
}

// Launch starts Chrome and opens a blank page.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*RodDriver, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.ProfileDir != "" {
		dir, err := filepath.Abs(opts.ProfileDir)
		if err != nil {
			return nil, fmt.Errorf("resolve profile dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
		l = l.UserDataDir(dir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	logger.Info("browser started", zap.Bool("headless", opts.Headless), zap.String("profile_dir", opts.ProfileDir))
	return &RodDriver{opts: opts, launcher: l, browser: browser, page: page, logger: logger}, nil
}

// Open navigates the page and waits for the load event.
func (d *RodDriver) Open(ctx context.Context, url string) error {
	page := d.page.Context(ctx).Timeout(d.opts.NavigationTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// Find returns the first element matching selector without waiting.
func (d *RodDriver) Find(ctx context.Context, selector string) (Handle, error) {
	el, err := d.page.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
		}
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	return el, nil
}

// FindAll returns every element currently matching selector.
func (d *RodDriver) FindAll(ctx context.Context, selector string) ([]Handle, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", selector, err)
	}
	handles := make([]Handle, 0, len(els))
	for _, el := range els {
		handles = append(handles, el)
	}
	return handles, nil
}

// Activate clicks the element through script so overlays cannot intercept it.
func (d *RodDriver) Activate(ctx context.Context, h Handle) error {
	el, err := element(h)
	if err != nil {
		return err
	}
	if _, err := el.Context(ctx).Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("activate element: %w", err)
	}
	return nil
}

// ReadText returns the visible text of the element.
func (d *RodDriver) ReadText(ctx context.Context, h Handle) (string, error) {
	el, err := element(h)
	if err != nil {
		return "", err
	}
	text, err := el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

// ReadAttribute returns the attribute value, or an empty string when it is absent.
func (d *RodDriver) ReadAttribute(ctx context.Context, h Handle, name string) (string, error) {
	el, err := element(h)
	if err != nil {
		return "", err
	}
	value, err := el.Context(ctx).Attribute(name)
	if err != nil {
		return "", fmt.Errorf("read attribute %s: %w", name, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// TypeText replaces the element content with text.
func (d *RodDriver) TypeText(ctx context.Context, h Handle, text string) error {
	el, err := element(h)
	if err != nil {
		return err
	}
	el = el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("clear input: %w", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type text: %w", err)
	}
	return nil
}

// Submit presses Enter on the element.
func (d *RodDriver) Submit(ctx context.Context, h Handle) error {
	el, err := element(h)
	if err != nil {
		return err
	}
	if err := el.Context(ctx).Type(input.Enter); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// WaitFor races the selectors and returns the first that appears.
func (d *RodDriver) WaitFor(ctx context.Context, timeout time.Duration, selectors ...string) (Match, error) {
	if len(selectors) == 0 {
		return Match{}, fmt.Errorf("wait for: no selectors")
	}

	page := d.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	var matched string
	race := page.Race()
	for _, selector := range selectors {
		race = race.Element(selector).Handle(func(*rod.Element) error {
			matched = selector
			return nil
		})
	}

	el, err := race.Do()
	if err != nil {
		if ctx.Err() != nil {
			return Match{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Match{}, fmt.Errorf("%v after %s: %w", selectors, timeout, ErrTimeout)
		}
		return Match{}, fmt.Errorf("wait for %v: %w", selectors, err)
	}
	return Match{Selector: matched, Handle: el}, nil
}

// Scroll moves the container to its bottom and waits for lazy content to load.
func (d *RodDriver) Scroll(ctx context.Context, selector string) (bool, error) {
	h, err := d.Find(ctx, selector)
	if err != nil {
		return false, err
	}
	el, err := element(h)
	if err != nil {
		return false, err
	}
	el = el.Context(ctx)

	before, err := scrollHeight(el)
	if err != nil {
		return false, err
	}
	if _, err := el.Eval(`() => { this.scrollTop = this.scrollHeight }`); err != nil {
		return false, fmt.Errorf("scroll %s: %w", selector, err)
	}

	if d.opts.ScrollSettle > 0 {
		timer := time.NewTimer(d.opts.ScrollSettle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	after, err := scrollHeight(el)
	if err != nil {
		return false, err
	}
	return after > before, nil
}

// Close shuts down the page, the browser and its process.
func (d *RodDriver) Close() error {
	var errs []error
	if d.page != nil {
		if err := d.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
	d.logger.Info("browser stopped")
	return errors.Join(errs...)
}

func scrollHeight(el *rod.Element) (int, error) {
	res, err := el.Eval(`() => this.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

func element(h Handle) (*rod.Element, error) {
	el, ok := h.(*rod.Element)
	if !ok || el == nil {
		return nil, ErrInvalidHandle
	}
	return el, nil
}

var _ Driver = (*RodDriver)(nil)
