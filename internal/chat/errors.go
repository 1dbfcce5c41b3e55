package chat

import (
	"errors"
	"fmt"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
)

// Kind classifies a validation failure of a core operation.
type Kind string

const (
	KindInvalidParticipants Kind = "invalid_participants"
	KindEmptyContent        Kind = "empty_content"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
)

// Error is a kind-tagged failure returned to callers of this package.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// works regardless of operation and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidParticipants = &Error{Kind: KindInvalidParticipants, Msg: "invalid participants"}
	ErrEmptyContent        = &Error{Kind: KindEmptyContent, Msg: "message content is empty"}
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden           = &Error{Kind: KindForbidden, Msg: "forbidden"}
)

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// storeError turns the store's not-found sentinels into NotFound and wraps
// everything else as an infrastructure failure.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, database.ErrConversationNotFound):
		return newError(KindNotFound, op, "conversation not found")
	case errors.Is(err, database.ErrMessageNotFound):
		return newError(KindNotFound, op, "message not found")
	case errors.Is(err, database.ErrNotificationNotFound):
		return newError(KindNotFound, op, "notification not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}
