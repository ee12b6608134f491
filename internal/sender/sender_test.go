package sender_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Cypherspark/notify-gateway/internal/core"
	"github.com/Cypherspark/notify-gateway/internal/sender"
)

func TestSimulatedDelaysPerChannel(t *testing.T) {
	s := sender.NewSimulated(10*time.Millisecond, 30*time.Millisecond, 0)

	start := time.Now()
	require.NoError(t, s.Send(context.Background(), core.ChannelTelegram, 1, "hi"))
	telegram := time.Since(start)

	start = time.Now()
	require.NoError(t, s.Send(context.Background(), core.ChannelEmail, 1, "hi"))
	email := time.Since(start)

	require.GreaterOrEqual(t, telegram, 10*time.Millisecond)
	require.GreaterOrEqual(t, email, 30*time.Millisecond)
}

func TestSimulatedRespectsCancellation(t *testing.T) {
	s := sender.NewSimulated(time.Minute, time.Minute, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, core.ChannelTelegram, 1, "hi")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulatedFailureRate(t *testing.T) {
	s := sender.NewSimulated(0, 0, 100)
	require.Error(t, s.Send(context.Background(), core.ChannelEmail, 1, "hi"))
}
