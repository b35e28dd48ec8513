package pubsub

import "errors"

// Domain-specific errors for the pub/sub core.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformedFrame is returned when a received buffer fails structural
	// validation (empty, or no zero-byte separator before the final byte).
	ErrMalformedFrame = errors.New("pubsub: malformed frame")

	// ErrTopicContainsSeparator is returned when a topic embeds the zero
	// byte used as the wire-frame separator. Such a topic would decode
	// truncated on the receiving end, so it is rejected up front.
	ErrTopicContainsSeparator = errors.New("pubsub: topic contains zero byte")

	// ErrEmptyTopic is returned when a topic is empty.
	ErrEmptyTopic = errors.New("pubsub: topic cannot be empty")
)
