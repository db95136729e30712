package services

import (
	"context"

	"go.uber.org/zap"
)

// MessageFormat tells the notifier how to render text.
type MessageFormat int

const (
	FormatPlain MessageFormat = iota
	FormatMarkdown
)

// Notifier delivers a message to a user. Failures are returned to the
// caller and never retried.
type Notifier interface {
	SendMessage(ctx context.Context, userID, text string, format MessageFormat) error
}

// LogNotifier writes messages to the log instead of delivering them. It
// stands in when no chat transport is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) SendMessage(_ context.Context, userID, text string, format MessageFormat) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification (no chat transport)",
		zap.String("user_id", userID),
		zap.Bool("markdown", format == FormatMarkdown),
		zap.String("text", text),
	)
	return nil
}
