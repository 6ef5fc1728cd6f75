package notifier

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

// Log writes notifications to the log instead of delivering them. Used when
// no broker is configured.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs the notification.
func (l *Log) Notify(_ context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return domain.NotificationError(n.Recipient, err)
	}

	l.logger.Info().
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Str("template", n.Template).
		RawJSON("payload", payload).
		Msg("NOTIFICATION")

	return nil
}
