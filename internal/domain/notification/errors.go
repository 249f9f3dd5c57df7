package notification

import "errors"

var (
	ErrOutboxNotFound   = errors.New("outbox entry not found")
	ErrTemplateNotFound = errors.New("no message template for this kind")
	ErrNoRecipients     = errors.New("student has no guardian channel for the notify preference")
)
