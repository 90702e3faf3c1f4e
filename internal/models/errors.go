// Package models defines the error taxonomy shared across PostPilot modules.
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for logging and transport mapping.
type ErrorKind string

const (
	// ErrorKindInvalidInput marks user-correctable input errors (bad topic,
	// style, or length). Reported to the user verbatim.
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	// ErrorKindNoPriorTopic marks a regenerate request with no stored topic.
	ErrorKindNoPriorTopic ErrorKind = "no_prior_topic"
	// ErrorKindUpstreamTimeout marks a completion call that exceeded its
	// per-attempt timeout after exhausting retries.
	ErrorKindUpstreamTimeout ErrorKind = "upstream_timeout"
	// ErrorKindUpstreamRejected marks a non-retryable upstream rejection
	// (auth failure, malformed request).
	ErrorKindUpstreamRejected ErrorKind = "upstream_rejected"
	// ErrorKindUpstreamEmptyResponse marks an empty or whitespace-only
	// completion response.
	ErrorKindUpstreamEmptyResponse ErrorKind = "upstream_empty_response"
	// ErrorKindStorageFailure marks a durable-write failure.
	ErrorKindStorageFailure ErrorKind = "storage_failure"
)

// BotError is a structured failure carrying a taxonomy kind alongside the
// underlying cause. Every failure path surfaces one of these; nothing fails
// open into a default success.
type BotError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *BotError) Unwrap() error {
	return e.Err
}

// InvalidInput constructs a user-correctable input error.
func InvalidInput(message string) *BotError {
	return &BotError{Kind: ErrorKindInvalidInput, Message: message}
}

// NoPriorTopic constructs the error for a regenerate with no history.
func NoPriorTopic(conversationID string) *BotError {
	return &BotError{Kind: ErrorKindNoPriorTopic, Message: "no topic has been generated yet for conversation " + conversationID}
}

// UpstreamTimeout constructs a timeout error wrapping the underlying cause.
func UpstreamTimeout(err error) *BotError {
	return &BotError{Kind: ErrorKindUpstreamTimeout, Message: "completion endpoint timed out", Err: err}
}

// UpstreamRejected constructs a non-retryable upstream rejection error.
func UpstreamRejected(err error) *BotError {
	return &BotError{Kind: ErrorKindUpstreamRejected, Message: "completion endpoint rejected the request", Err: err}
}

// UpstreamEmptyResponse constructs the error for a blank completion.
func UpstreamEmptyResponse() *BotError {
	return &BotError{Kind: ErrorKindUpstreamEmptyResponse, Message: "completion endpoint returned an empty response"}
}

// StorageFailure constructs a durable-write failure error.
func StorageFailure(message string, err error) *BotError {
	return &BotError{Kind: ErrorKindStorageFailure, Message: message, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Errors that carry
// no BotError default to upstream_rejected so that unexpected failures are
// never presented as user mistakes.
func KindOf(err error) ErrorKind {
	var be *BotError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ErrorKindUpstreamRejected
}

// IsUserCorrectable reports whether the error should be shown to the user
// verbatim rather than as a generic failure notice.
func IsUserCorrectable(err error) bool {
	switch KindOf(err) {
	case ErrorKindInvalidInput, ErrorKindNoPriorTopic:
		return true
	default:
		return false
	}
}

// UserMessage renders the user-visible wording for a failure. Upstream
// kinds collapse into a generic retry notice; the specific kind stays
// available for logging via KindOf.
func UserMessage(err error) string {
	var be *BotError
	if errors.As(err, &be) {
		switch be.Kind {
		case ErrorKindInvalidInput:
			return be.Message
		case ErrorKindNoPriorTopic:
			return "No saved topic yet. Use /post <topic> first."
		case ErrorKindStorageFailure:
			return "Your preference could not be saved. Please try again."
		}
	}
	return "Generation failed, please try again."
}
