package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/leads-prospector/internal/driver"
	"github.com/octobees/leads-prospector/internal/selectors"
)

// ChannelState is the lifecycle of the messaging web session.
type ChannelState int

const (
	ChannelDisconnected ChannelState = iota
	ChannelAwaitingAuthorization
	ChannelAuthorized
	ChannelTerminated
)

// String implements fmt.Stringer.
func (s ChannelState) String() string {
	switch s {
	case ChannelDisconnected:
		return "disconnected"
	case ChannelAwaitingAuthorization:
		return "awaiting_authorization"
	case ChannelAuthorized:
		return "authorized"
	case ChannelTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

var (
	// ErrAuthTimeout is returned when the session is not authorized in time.
	ErrAuthTimeout = errors.New("channel authorization timed out")
	// ErrChannelNotAuthorized is returned when sending before authorization.
	ErrChannelNotAuthorized = errors.New("channel is not authorized")
	// ErrComposerNotFound is returned when the chat never shows a message box.
	ErrComposerNotFound = errors.New("message composer not found")
)

// ChannelOptions bounds every wait performed by the channel.
type ChannelOptions struct {
	DetectTimeout   time.Duration
	AuthTimeout     time.Duration
	ComposerTimeout time.Duration
	FallbackTimeout time.Duration
	BeforeSubmit    time.Duration
	AfterSubmit     time.Duration
}

// DefaultChannelOptions mirrors the waits a person would tolerate in the web client.
func DefaultChannelOptions() ChannelOptions {
	return ChannelOptions{
		DetectTimeout:   30 * time.Second,
		AuthTimeout:     120 * time.Second,
		ComposerTimeout: 15 * time.Second,
		FallbackTimeout: 10 * time.Second,
		BeforeSubmit:    2 * time.Second,
		AfterSubmit:     3 * time.Second,
	}
}

// Channel drives the messaging web client through a driver.Driver.
type Channel struct {
	drv    driver.Driver
	sel    *selectors.Selectors
	opts   ChannelOptions
	state  ChannelState
	logger *zap.Logger
}

// NewChannel wraps drv; the channel starts disconnected.
func NewChannel(drv driver.Driver, sel *selectors.Selectors, opts ChannelOptions, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{drv: drv, sel: sel, opts: opts, state: ChannelDisconnected, logger: logger}
}

// State reports the current lifecycle state.
func (c *Channel) State() ChannelState {
	return c.state
}

// Authorize opens the client and waits for an authenticated session. When a
// QR code is shown it waits up to AuthTimeout for the operator to scan it.
func (c *Channel) Authorize(ctx context.Context) error {
	if c.state == ChannelAuthorized {
		return nil
	}
	if c.state == ChannelTerminated {
		return ErrChannelNotAuthorized
	}

	if err := c.drv.Open(ctx, c.sel.WhatsApp.HomeURL); err != nil {
		return fmt.Errorf("open messaging client: %w", err)
	}
	c.state = ChannelAwaitingAuthorization

	match, err := c.drv.WaitFor(ctx, c.opts.DetectTimeout, c.sel.WhatsApp.QRCode, c.sel.WhatsApp.ChatList)
	if err != nil {
		return authError(err)
	}
	if match.Selector == c.sel.WhatsApp.ChatList {
		c.state = ChannelAuthorized
		c.logger.Info("messaging session already authorized")
		return nil
	}

	c.logger.Info("qr code displayed, waiting for scan", zap.Duration("timeout", c.opts.AuthTimeout))
	if _, err := c.drv.WaitFor(ctx, c.opts.AuthTimeout, c.sel.WhatsApp.ChatList); err != nil {
		return authError(err)
	}
	c.state = ChannelAuthorized
	c.logger.Info("messaging session authorized")
	return nil
}

// Send opens the chat for a dialable phone number, types message and submits it.
func (c *Channel) Send(ctx context.Context, phone, message string) error {
	if c.state != ChannelAuthorized {
		return ErrChannelNotAuthorized
	}

	if err := c.drv.Open(ctx, c.sel.SendURL(phone)); err != nil {
		return fmt.Errorf("open chat: %w", err)
	}

	composer, err := c.composer(ctx)
	if err != nil {
		return err
	}
	if err := c.drv.TypeText(ctx, composer, message); err != nil {
		return fmt.Errorf("type message: %w", err)
	}
	if err := sleepCtx(ctx, c.opts.BeforeSubmit); err != nil {
		return err
	}
	if err := c.drv.Submit(ctx, composer); err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	return sleepCtx(ctx, c.opts.AfterSubmit)
}

// Close terminates the session and releases the driver.
func (c *Channel) Close() error {
	if c.state == ChannelTerminated {
		return nil
	}
	c.state = ChannelTerminated
	return c.drv.Close()
}

func (c *Channel) composer(ctx context.Context) (driver.Handle, error) {
	match, err := c.drv.WaitFor(ctx, c.opts.ComposerTimeout, c.sel.WhatsApp.Composer)
	if err == nil {
		return match.Handle, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	match, err = c.drv.WaitFor(ctx, c.opts.FallbackTimeout, c.sel.WhatsApp.ComposerFallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrComposerNotFound, err)
	}
	return match.Handle, nil
}

func authError(err error) error {
	if errors.Is(err, driver.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrAuthTimeout, err)
	}
	return fmt.Errorf("authorize messaging client: %w", err)
}
