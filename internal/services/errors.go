package services

import "errors"

// User input errors. The chat layer turns these into messages, nothing is persisted.
var (
	ErrInvalidFormat = errors.New("invalid format, expected DDMMYYYY Name")
	ErrMissingName   = errors.New("event name is missing")
	ErrDateInPast    = errors.New("event date is in the past")
)

var (
	ErrEventLimitReached = errors.New("event limit reached")
	ErrEventNotFound     = errors.New("event not found")
	ErrGiftLimitReached  = errors.New("daily gift advice limit reached")
	ErrEmptyBroadcast    = errors.New("broadcast message is empty")
	ErrNotAdmin          = errors.New("user is not the admin")
)
