// Package ledger decides which businesses may be stored and contacted.
// Every decision is a direct read or idempotent write against the durable
// store, so concurrent or repeated campaigns cannot double-admit a business
// or deliver to it twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/repository"
)

// AdmitOutcome is the result of offering a business to the ledger.
type AdmitOutcome int

const (
	// AdmitSaved means the business was new and is now stored.
	AdmitSaved AdmitOutcome = iota + 1
	// AdmitDuplicate means (name, phone) was already stored; nothing changed.
	AdmitDuplicate
)

// String implements fmt.Stringer.
func (o AdmitOutcome) String() string {
	switch o {
	case AdmitSaved:
		return "saved"
	case AdmitDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// ErrNameRequired rejects businesses without a name.
var ErrNameRequired = errors.New("business name is required")

// ErrAlreadySent is returned by RecordAttempt when the business already has a delivered message.
var ErrAlreadySent = repository.ErrAlreadySent

// Ledger guards discovery and outreach against duplicates.
type Ledger struct {
	businesses repository.BusinessesRepository
	logs       repository.MessageLogsRepository
}

// New constructs a Ledger over the given store.
func New(store repository.Store) *Ledger {
	return &Ledger{businesses: store.Businesses, logs: store.MessageLogs}
}

// AdmitBusiness stores the business unless an identical (name, phone) pair exists.
// A duplicate is not an error.
func (l *Ledger) AdmitBusiness(ctx context.Context, business *entity.Business) (AdmitOutcome, error) {
	if business == nil {
		return 0, fmt.Errorf("business payload is nil")
	}
	business.Name = strings.TrimSpace(business.Name)
	business.Phone = strings.TrimSpace(business.Phone)
	if business.Name == "" {
		return 0, ErrNameRequired
	}

	inserted, err := l.businesses.InsertIfAbsent(ctx, business)
	if err != nil {
		return 0, fmt.Errorf("admit business %q: %w", business.Name, err)
	}
	if !inserted {
		return AdmitDuplicate, nil
	}
	return AdmitSaved, nil
}

// Eligible returns businesses that have a phone and no delivered message,
// optionally narrowed by a category substring, in discovery order.
// A non-positive limit returns every eligible business.
func (l *Ledger) Eligible(ctx context.Context, category string, limit int) ([]entity.Business, error) {
	filter := dto.BusinessFilter{
		Category:    category,
		WithPhone:   true,
		ExcludeSent: true,
		Limit:       limit,
	}
	businesses, err := l.businesses.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("select eligible businesses: %w", err)
	}
	return businesses, nil
}

// AlreadySent re-checks one business immediately before an attempt.
func (l *Ledger) AlreadySent(ctx context.Context, businessID int64) (bool, error) {
	sent, err := l.logs.HasSent(ctx, businessID)
	if err != nil {
		return false, fmt.Errorf("check business %d: %w", businessID, err)
	}
	return sent, nil
}

// RecordAttempt persists one outreach attempt. A second delivered attempt
// for the same business fails with ErrAlreadySent.
func (l *Ledger) RecordAttempt(ctx context.Context, log *entity.MessageLog) error {
	if log == nil {
		return fmt.Errorf("message log payload is nil")
	}
	if err := l.logs.Insert(ctx, log); err != nil {
		if errors.Is(err, repository.ErrAlreadySent) {
			return ErrAlreadySent
		}
		return fmt.Errorf("record attempt for business %d: %w", log.BusinessID, err)
	}
	return nil
}
