package storage

import (
	"errors"
	"strconv"
)

// ErrNilRecord is returned when a nil conversation or message is stored.
var ErrNilRecord = errors.New("cannot store nil record")

// NotFoundError is returned when a conversation doesn't exist, or is not
// visible to the requesting user.
type NotFoundError struct {
	ConversationID int64
}

func (e NotFoundError) Error() string {
	if e.ConversationID == 0 {
		return "conversation not found"
	}

	return "conversation not found: " + strconv.FormatInt(e.ConversationID, 10)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
