package shared

import (
	"errors"

	"golang.org/x/text/language"
)

// Localized is implemented by errors that carry a user-facing message.
type Localized interface {
	MessageKey() string
	MessageArgs() []any
}

// UserSafeMessage renders err for end users in tag. Errors without a message key
// collapse to a generic text so internal details never leak.
func UserSafeMessage(tag language.Tag, err error) string {
	if err == nil {
		return ""
	}
	var loc Localized
	if errors.As(err, &loc) {
		return Translate(tag, loc.MessageKey(), loc.MessageArgs()...)
	}
	return Translate(tag, MsgInternal)
}
