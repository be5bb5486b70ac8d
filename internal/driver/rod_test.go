package driver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{ScrollSettle: -time.Second}.withDefaults()
	if opts.NavigationTimeout != 60*time.Second {
		t.Fatalf("expected default navigation timeout, got %s", opts.NavigationTimeout)
	}
	if opts.ScrollSettle != 0 {
		t.Fatalf("expected negative settle to clamp to zero, got %s", opts.ScrollSettle)
	}

	opts = Options{NavigationTimeout: time.Second, ScrollSettle: 2 * time.Second}.withDefaults()
	if opts.NavigationTimeout != time.Second || opts.ScrollSettle != 2*time.Second {
		t.Fatalf("explicit values must be kept: %+v", opts)
	}
}

func TestRodDriver_RejectsForeignHandles(t *testing.T) {
	d := &RodDriver{}
	ctx := context.Background()

	if err := d.Activate(ctx, "not an element"); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := d.ReadText(ctx, 42); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := d.ReadAttribute(ctx, nil, "href"); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	if err := d.TypeText(ctx, struct{}{}, "hi"); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	if err := d.Submit(ctx, nil); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestRodDriver_WaitForRequiresSelectors(t *testing.T) {
	d := &RodDriver{}
	if _, err := d.WaitFor(context.Background(), time.Second); err == nil {
		t.Fatalf("expected error without selectors")
	}
}
