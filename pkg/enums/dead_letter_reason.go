package enums

import "slices"

// DeadLetterReason records why the relay gave up on an outbox row.
type DeadLetterReason string

const (
	// DeadLetterMaxAttempts: every publish attempt failed transiently.
	DeadLetterMaxAttempts DeadLetterReason = "max_attempts"
	// DeadLetterNonRetryable: the broker or routing rejected the message outright.
	DeadLetterNonRetryable DeadLetterReason = "non_retryable"
	// DeadLetterUnresolvable: the stored row could not be decoded into a known event.
	DeadLetterUnresolvable DeadLetterReason = "unresolvable"
)

var deadLetterReasons = []DeadLetterReason{DeadLetterMaxAttempts, DeadLetterNonRetryable, DeadLetterUnresolvable}

func (r DeadLetterReason) IsValid() bool {
	return slices.Contains(deadLetterReasons, r)
}
