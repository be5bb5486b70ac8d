package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out real sends. Wait blocks until the next send may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter allowing one send per 3600/messagesPerHour seconds.
// The first Wait returns immediately.
func NewPacer(messagesPerHour int) *rate.Limiter {
	if messagesPerHour <= 0 {
		messagesPerHour = 1
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(messagesPerHour)), 1)
}

// SendInterval is the minimum spacing between consecutive real sends.
func SendInterval(messagesPerHour int) time.Duration {
	if messagesPerHour <= 0 {
		messagesPerHour = 1
	}
	return time.Hour / time.Duration(messagesPerHour)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
