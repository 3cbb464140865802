package notifications

import "errors"

var (
	// ErrMalformedRecord is returned when a notification payload is missing
	// required fields or cannot be decoded.
	ErrMalformedRecord = errors.New("malformed notification record")

	// ErrNegativeCount is returned when an unread count below zero is applied.
	ErrNegativeCount = errors.New("unread count must not be negative")

	// ErrMalformedCount is returned when an unread count payload is not an integer.
	ErrMalformedCount = errors.New("malformed unread count")
)
