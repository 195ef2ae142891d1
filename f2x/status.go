package f2x

import "fmt"

// StatusCode is the status field of an application header. Zero means the frame carries a valid payload.
type StatusCode int32

// Status codes reported by the Foundation in the application header.
const (
	StatusNoError                   StatusCode = 0
	StatusUnspecifiedError          StatusCode = 1
	StatusCategoryNotFound          StatusCode = -1
	StatusTokenMissing              StatusCode = -2
	StatusNoOpenTransaction         StatusCode = -3
	StatusMessageDecodeError        StatusCode = -4
	StatusInvalidMessageBody        StatusCode = -5
	StatusInvalidVersion            StatusCode = -6
	StatusInvalidTransactionChannel StatusCode = -7
)

const statusNoDescription = "no description available for status code"

var statusDescriptions = map[StatusCode]string{
	StatusNoError:                   "no error",
	StatusUnspecifiedError:          "unspecified error",
	StatusCategoryNotFound:          "category not found",
	StatusTokenMissing:              "token missing",
	StatusNoOpenTransaction:         "no open transaction",
	StatusMessageDecodeError:        "message decode error",
	StatusInvalidMessageBody:        "invalid message body",
	StatusInvalidVersion:            "invalid version",
	StatusInvalidTransactionChannel: "invalid channel for a transactional message",
}

// Description returns the human readable description of the status code.
func (c StatusCode) Description() string {
	if desc, ok := statusDescriptions[c]; ok {
		return desc
	}

	return statusNoDescription
}

func (c StatusCode) String() string {
	return fmt.Sprintf("%d (%s)", int32(c), c.Description())
}

// StatusError is raised when a received header carries a non-zero status code.
// The payload of such a frame is never parsed.
type StatusError struct {
	Code   StatusCode
	Header ApplicationHeaderSegment
}

// NewStatusError creates a StatusError from the received header.
func NewStatusError(header ApplicationHeaderSegment) *StatusError {
	return &StatusError{Code: StatusCode(header.StatusCode), Header: header}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, %s (message number %d, category %s, channel %s)",
		ErrTransportStatus,
		int32(e.Code),
		e.Code.Description(),
		e.Header.MessageNumber,
		MessageCategory(e.Header.ApiCategory),
		Channel(e.Header.Channel),
	)
}

func (e *StatusError) Is(target error) bool { return target == ErrTransportStatus }
