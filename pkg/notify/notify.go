package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
)

type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerifyEmail, PurposeResetPassword:
		return true
	}
	return false
}

var ErrUnknownPurpose = errors.New("unknown notification purpose")

// Notification asks for an out-of-band message carrying a single-use token.
type Notification struct {
	Email   string  `json:"email"`
	Token   string  `json:"token"`
	Purpose Purpose `json:"purpose"`
}

// Notifier accepts notifications without waiting for delivery. Delivery
// failures never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Sender delivers one notification synchronously.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogSender is used when no transport is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n Notification) error {
	logging.FromContext(ctx).Warn("notification_not_delivered", "reason", "no transport configured", "purpose", n.Purpose, "email", n.Email)
	return nil
}

func Encode(n Notification) ([]byte, error) {
	if !n.Purpose.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPurpose, n.Purpose)
	}
	return json.Marshal(n)
}

func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if !n.Purpose.Valid() {
		return Notification{}, fmt.Errorf("%w: %q", ErrUnknownPurpose, n.Purpose)
	}
	if n.Email == "" || n.Token == "" {
		return Notification{}, errors.New("decode notification: email and token are required")
	}
	return n, nil
}
