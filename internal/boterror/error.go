// Package boterror defines the single error carrier shared by every core
// component. Handlers return a *Error and the dispatch loop (outside the
// scope of this package) decides whether to speak into the chat, log, or
// record stats based on its Kind.
package boterror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error for dispatch-time handling.
type Kind int

const (
	// KindGeneric is an unclassified internal error.
	KindGeneric Kind = iota
	// KindSpeak carries a user-visible message that should be replied
	// into the originating chat verbatim.
	KindSpeak
	// KindPlatform wraps an error from the messaging platform client.
	KindPlatform
	// KindStore wraps a durable-store (SQL) error.
	KindStore
	// KindCache wraps a cache-substrate (KV) error.
	KindCache
	// KindSerialization wraps a (de)serialization failure.
	KindSerialization
	// KindPermission indicates a denied permission check.
	KindPermission
	// KindNotFound indicates a missing entity.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindSpeak:
		return "speak"
	case KindPlatform:
		return "platform"
	case KindStore:
		return "store"
	case KindCache:
		return "cache"
	case KindSerialization:
		return "serialization"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "notfound"
	default:
		return "generic"
	}
}

// Error is the one error type every core component returns.
type Error struct {
	Kind Kind

	// ChatID is set for KindSpeak: the chat the message should be sent to.
	ChatID int64
	// ReplyToMessageID, if non-zero, quotes the offending message.
	ReplyToMessageID int

	// Message is the human-readable text: either the Speak payload, or a
	// diagnostic message for any other kind.
	Message string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Speak builds a KindSpeak error: a reply of message into chatID. replyTo
// is 0 when the reply should not quote a specific message.
func Speak(chatID int64, replyTo int, message string) *Error {
	return &Error{Kind: KindSpeak, ChatID: chatID, ReplyToMessageID: replyTo, Message: message}
}

// Generic wraps cause (or, with no cause, just message) as KindGeneric.
func Generic(message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: KindGeneric, Message: message, cause: cause}
}

// Platform wraps a platform-client error.
func Platform(cause error) *Error {
	return &Error{Kind: KindPlatform, Message: "platform request failed", cause: errors.WithStack(cause)}
}

// Store wraps a durable-store error.
func Store(message string, cause error) *Error {
	return &Error{Kind: KindStore, Message: message, cause: errors.WithStack(cause)}
}

// Cache wraps a cache-substrate error.
func Cache(message string, cause error) *Error {
	return &Error{Kind: KindCache, Message: message, cause: errors.WithStack(cause)}
}

// Serialization wraps a (de)serialization error.
func Serialization(cause error) *Error {
	return &Error{Kind: KindSerialization, Message: "serialization failed", cause: errors.WithStack(cause)}
}

// NotFound reports a missing entity.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// PermissionDenied builds the standard "Permission denied. User missing
// <Name>" Speak error described in the permission-check flow.
func PermissionDenied(chatID int64, permissionName string) *Error {
	return Speak(chatID, 0, fmt.Sprintf("Permission denied. User missing %s", permissionName))
}

// As reports whether err is (or wraps) a *Error, like errors.As.
func As(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
