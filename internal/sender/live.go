package sender

import (
	"context"
	"fmt"

	"github.com/Cypherspark/notify-gateway/internal/core"
)

// Live routes each channel to its real integration.
type Live struct {
	telegram *TelegramClient
	email    *EmailClient
	emailTo  string // address template with one %d for the user id
}

func NewLive(telegram *TelegramClient, email *EmailClient, emailTo string) *Live {
	return &Live{telegram: telegram, email: email, emailTo: emailTo}
}

func (l *Live) Send(ctx context.Context, ch core.Channel, userID int64, message string) error {
	switch ch {
	case core.ChannelTelegram:
		return l.telegram.Send(ctx, ChatID(userID), message)
	case core.ChannelEmail:
		return l.email.Send(fmt.Sprintf(l.emailTo, userID), message)
	default:
		return fmt.Errorf("no sender for channel %q", ch)
	}
}
