package core

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Cypherspark/notify-gateway/internal/metrics"
)

// Store is the slice of the key-value gateway the engine needs.
type Store interface {
	WriteFields(ctx context.Context, key string, fields map[string]string) error
	ReadFields(ctx context.Context, key string) (map[string]string, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	ExpireKey(ctx context.Context, key string, ttl time.Duration) error
}

// Sender performs the channel-specific delivery side effect.
type Sender interface {
	Send(ctx context.Context, ch Channel, userID int64, message string) error
}

// Runner schedules a unit of work to execute after the triggering request
// has returned, without blocking the submitter.
type Runner interface {
	Submit(task func(ctx context.Context)) error
}

// Service orchestrates the notification lifecycle: persist pending, hand the
// delivery off to the runner, persist the terminal state.
type Service struct {
	store     Store
	sender    Sender
	runner    Runner
	log       zerolog.Logger
	statusTTL time.Duration // TTL for the per-user status summary, 0 = keep forever
}

func NewService(store Store, sender Sender, runner Runner, log zerolog.Logger, statusTTL time.Duration) *Service {
	return &Service{
		store:     store,
		sender:    sender,
		runner:    runner,
		log:       log,
		statusTTL: statusTTL,
	}
}

func validateDispatch(userID int64, message string, ch Channel) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	if n := utf8.RuneCountInString(message); n < 1 || n > 1000 {
		return ErrInvalidMessage
	}
	if ch != ChannelTelegram && ch != ChannelEmail {
		return ErrInvalidChannel
	}
	return nil
}

// Dispatch accepts a send request. The record is persisted as pending before
// Dispatch returns; delivery and the terminal write happen on the runner.
// The returned record reflects the pending state the caller observed.
func (s *Service) Dispatch(ctx context.Context, userID int64, message string, ch Channel) (NotificationRecord, error) {
	if err := validateDispatch(userID, message, ch); err != nil {
		metrics.DispatchTotal.WithLabelValues(string(ch), "rejected").Inc()
		return NotificationRecord{}, err
	}

	rec := NewNotificationRecord(userID, message, ch)
	if err := s.store.WriteFields(ctx, rec.Key(), rec.Hash()); err != nil {
		metrics.DispatchTotal.WithLabelValues(string(ch), "store_error").Inc()
		return rec, fmt.Errorf("persist pending: %w", err)
	}

	if err := s.runner.Submit(func(taskCtx context.Context) { s.deliver(taskCtx, rec) }); err != nil {
		metrics.DispatchTotal.WithLabelValues(string(ch), "queue_full").Inc()
		return rec, fmt.Errorf("schedule delivery: %w", err)
	}

	metrics.DispatchTotal.WithLabelValues(string(ch), "accepted").Inc()
	return rec, nil
}

// deliver runs on the worker pool. Success transitions the record to sent and
// stamps sent_at; a send error transitions it to failed. Either way the same
// storage key is overwritten with the full field set.
func (s *Service) deliver(ctx context.Context, rec NotificationRecord) {
	start := time.Now()
	err := s.sender.Send(ctx, rec.Channel, rec.UserID, rec.Message)
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	now := time.Now().UTC()
	if err != nil {
		rec.Status = StatusFailed
		metrics.DeliveryTotal.WithLabelValues(string(rec.Channel), "failed").Inc()
		s.log.Warn().Err(err).Int64("user_id", rec.UserID).Str("channel", string(rec.Channel)).Msg("delivery failed")
	} else {
		rec.Status = StatusSent
		rec.SentAt = &now
		metrics.DeliveryTotal.WithLabelValues(string(rec.Channel), "sent").Inc()
	}

	// A timed-out send arrives here with ctx already expired; the terminal
	// write must not be lost with it.
	persistCtx := context.WithoutCancel(ctx)
	if werr := s.store.WriteFields(persistCtx, rec.Key(), rec.Hash()); werr != nil {
		s.log.Error().Err(werr).Str("key", rec.Key()).Msg("persist terminal state")
		return
	}

	s.writeUserStatus(persistCtx, rec, now)
}

// writeUserStatus refreshes the denormalized per-user summary. Best effort:
// a failure here never affects the record itself.
func (s *Service) writeUserStatus(ctx context.Context, rec NotificationRecord, now time.Time) {
	us := UserStatus{
		UserID:    rec.UserID,
		Status:    rec.Status,
		Channel:   rec.Channel,
		UpdatedAt: now,
	}
	key := UserStatusKey(rec.UserID)
	if err := s.store.WriteFields(ctx, key, us.Hash()); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("write user status")
		return
	}
	if s.statusTTL > 0 {
		if err := s.store.ExpireKey(ctx, key, s.statusTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("expire user status")
		}
	}
}

// UserStatusFor reads the denormalized summary for one user.
func (s *Service) UserStatusFor(ctx context.Context, userID int64) (UserStatus, error) {
	if userID <= 0 {
		return UserStatus{}, ErrInvalidUserID
	}
	data, err := s.store.ReadFields(ctx, UserStatusKey(userID))
	if err != nil {
		return UserStatus{}, fmt.Errorf("read user status: %w", err)
	}
	return DecodeUserStatus(data)
}

// List returns the user's records newest-first, optionally filtered by
// status (zero value = no filter). Records that fail to decode are logged
// and dropped; a store outage propagates as an error.
func (s *Service) List(ctx context.Context, userID int64, filter Status) ([]NotificationRecord, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	keys, err := s.store.ScanKeys(ctx, RecordKeyPrefix(userID)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}

	records := make([]NotificationRecord, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.ReadFields(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if len(data) == 0 {
			continue
		}
		rec, err := DecodeNotificationRecord(data)
		if err != nil {
			metrics.DecodeSkips.Inc()
			s.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable record")
			continue
		}
		if filter != "" && rec.Status != filter {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}
