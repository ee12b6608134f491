// Package sender holds the delivery channel implementations. The dispatch
// engine only sees the core.Sender contract; which implementation backs it
// is a wiring decision in main.
package sender

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Cypherspark/notify-gateway/internal/core"
)

// Simulated stands in for the external chat-bot and email integrations. It
// sleeps for a fixed per-channel duration, respecting cancellation, and can
// be configured to fail a percentage of sends.
type Simulated struct {
	telegramDelay time.Duration
	emailDelay    time.Duration
	failPct       int
}

func NewSimulated(telegramDelay, emailDelay time.Duration, failPct int) *Simulated {
	return &Simulated{
		telegramDelay: telegramDelay,
		emailDelay:    emailDelay,
		failPct:       failPct,
	}
}

func (s *Simulated) Send(ctx context.Context, ch core.Channel, _ int64, _ string) error {
	delay := s.telegramDelay
	if ch == core.ChannelEmail {
		delay = s.emailDelay
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	if s.failPct > 0 && rand.Intn(100) < s.failPct {
		return errors.New("channel_temporary_error")
	}
	return nil
}
