package core

import (
	"fmt"
	"strconv"
	"time"
)

// UserStatus is a denormalized per-user summary of the latest notification
// outcome. Unlike NotificationRecord it is decoded leniently: stored data may
// be partial or corrupt, and everything except the user's identity degrades
// to a default instead of failing.
type UserStatus struct {
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	Channel   Channel   `json:"type,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStatusKey is the storage key for a user's status summary.
func UserStatusKey(userID int64) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// Hash encodes the summary as a flat string map. An absent channel encodes
// as the empty string.
func (s *UserStatus) Hash() map[string]string {
	return map[string]string{
		"user_id":    strconv.FormatInt(s.UserID, 10),
		"status":     string(s.Status),
		"type":       string(s.Channel),
		"updated_at": s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// DecodeUserStatus is the lenient decoder. An empty hash and a missing
// user_id still fail, since there is no identity to attach defaults to.
// Everything else falls back: unknown status -> pending, unknown type ->
// absent, missing or unparsable updated_at -> now.
func DecodeUserStatus(data map[string]string) (UserStatus, error) {
	var us UserStatus
	if len(data) == 0 {
		return us, ErrNoData
	}
	if data["user_id"] == "" {
		return us, &MissingFieldError{Field: "user_id"}
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return us, &BadValueError{Field: "user_id", Value: data["user_id"], Err: err}
	}

	status, _ := ParseStatus("status", data["status"], true)
	ch, _ := ParseChannel("type", data["type"], true)

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		updatedAt = time.Now().UTC()
	}

	return UserStatus{
		UserID:    userID,
		Status:    status,
		Channel:   ch,
		UpdatedAt: updatedAt,
	}, nil
}
