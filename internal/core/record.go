package core

import (
	"fmt"
	"strconv"
	"time"
)

// Channel is the delivery mechanism for a notification.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// Status is the lifecycle state of a notification record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ParseChannel parses a stored channel value. With lenient=true an
// unrecognized value maps to the empty channel instead of failing.
func ParseChannel(field, v string, lenient bool) (Channel, error) {
	switch Channel(v) {
	case ChannelTelegram, ChannelEmail:
		return Channel(v), nil
	}
	if lenient {
		return "", nil
	}
	return "", &BadEnumError{Field: field, Value: v}
}

// ParseStatus parses a stored status value. With lenient=true an
// unrecognized value maps to StatusPending instead of failing.
func ParseStatus(field, v string, lenient bool) (Status, error) {
	switch Status(v) {
	case StatusPending, StatusSent, StatusFailed:
		return Status(v), nil
	}
	if lenient {
		return StatusPending, nil
	}
	return "", &BadEnumError{Field: field, Value: v}
}

// NotificationRecord is one delivery attempt. Identity is
// (UserID, CreatedAt); CreatedAt never changes after construction.
type NotificationRecord struct {
	UserID    int64      `json:"user_id"`
	Message   string     `json:"message"`
	Channel   Channel    `json:"type"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// NewNotificationRecord builds a pending record stamped with the current time.
func NewNotificationRecord(userID int64, message string, ch Channel) NotificationRecord {
	return NotificationRecord{
		UserID:    userID,
		Message:   message,
		Channel:   ch,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// RecordKey is the storage key for a record. The creation timestamp is part
// of the key so the pending->sent transition overwrites one physical entry
// while distinct sends for the same user stay separate.
func RecordKey(userID int64, createdAt time.Time) string {
	return fmt.Sprintf("notification:%d:%d", userID, createdAt.UnixNano())
}

// RecordKeyPrefix scopes a scan to one user's notifications.
func RecordKeyPrefix(userID int64) string {
	return fmt.Sprintf("notification:%d:", userID)
}

func (r *NotificationRecord) Key() string {
	return RecordKey(r.UserID, r.CreatedAt)
}

// Hash encodes the record as the flat six-field string map stored in redis.
// An unset sent_at encodes as the empty string.
func (r *NotificationRecord) Hash() map[string]string {
	sentAt := ""
	if r.SentAt != nil {
		sentAt = r.SentAt.Format(time.RFC3339Nano)
	}
	return map[string]string{
		"user_id":    strconv.FormatInt(r.UserID, 10),
		"message":    r.Message,
		"type":       string(r.Channel),
		"status":     string(r.Status),
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		"sent_at":    sentAt,
	}
}

// DecodeNotificationRecord is the strict decoder: every field except sent_at
// is required, enums must match exactly, timestamps must parse.
// DecodeNotificationRecord(r.Hash()) round-trips for every valid record.
func DecodeNotificationRecord(data map[string]string) (NotificationRecord, error) {
	var rec NotificationRecord
	if len(data) == 0 {
		return rec, ErrNoData
	}

	for _, field := range []string{"user_id", "message", "type", "status", "created_at"} {
		if data[field] == "" {
			return rec, &MissingFieldError{Field: field}
		}
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return rec, &BadValueError{Field: "user_id", Value: data["user_id"], Err: err}
	}

	ch, err := ParseChannel("type", data["type"], false)
	if err != nil {
		return rec, err
	}
	status, err := ParseStatus("status", data["status"], false)
	if err != nil {
		return rec, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return rec, &BadValueError{Field: "created_at", Value: data["created_at"], Err: err}
	}

	var sentAt *time.Time
	if v := data["sent_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return rec, &BadValueError{Field: "sent_at", Value: v, Err: err}
		}
		sentAt = &t
	}

	rec = NotificationRecord{
		UserID:    userID,
		Message:   data["message"],
		Channel:   ch,
		Status:    status,
		CreatedAt: createdAt,
		SentAt:    sentAt,
	}
	return rec, nil
}

// NormalizeHash converts a hash whose values may come back from the store
// client as raw bytes into the string form the decoders expect.
func NormalizeHash[V string | []byte](raw map[string]V) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = string(v)
	}
	return out
}
