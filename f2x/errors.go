package f2x

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrBufferOverflow indicates that the destination buffer is too small to hold an application header.
	ErrBufferOverflow = errors.New("buffer overflow, not enough space for application header")

	// ErrBufferUnderflow indicates that the source buffer is too short to contain an application header.
	ErrBufferUnderflow = errors.New("buffer underflow, not enough data for application header")

	// ErrInvalidChannel indicates a channel value outside of Foundation, Game and FoundationNonTransactional,
	// or a channel that is not valid for the requested operation.
	ErrInvalidChannel = errors.New("invalid channel")
)

var (
	// ErrConnClosed indicates that the connection was closed or faulted while an operation was in progress.
	ErrConnClosed = errors.New("connection closed")

	// ErrNotConnected indicates that an operation requires a connected transport.
	ErrNotConnected = errors.New("transport is not connected")

	// ErrRawTransportNil indicates that a nil RawTransport was provided.
	ErrRawTransportNil = errors.New("raw transport is nil")

	// ErrLoggerNil indicates that a nil logger was provided.
	ErrLoggerNil = errors.New("logger is nil")

	// ErrChannelNotAcquired indicates that a channel was released without being acquired.
	ErrChannelNotAcquired = errors.New("channel is not acquired")

	// ErrCategoryClosed indicates that the category handler was closed while waiting for a reply.
	ErrCategoryClosed = errors.New("category handler closed")

	// ErrReplySlotOccupied indicates that a reply arrived while an earlier reply on the same
	// channel has not been consumed.
	ErrReplySlotOccupied = errors.New("reply slot already occupied")

	// ErrNoPendingRequest indicates a reply attempt on a channel that has not received a request.
	ErrNoPendingRequest = errors.New("no pending request to reply")
)

var (
	// ErrDuplicateCategory indicates that a handler for the category is already installed.
	ErrDuplicateCategory = errors.New("duplicate category handler")

	// ErrConnectionLevelCategory indicates an attempt to uninstall a connection-level category handler.
	ErrConnectionLevelCategory = errors.New("connection-level category handler cannot be uninstalled")

	// ErrUnhandledCategory indicates that no handler is installed for the category of a received message.
	ErrUnhandledCategory = errors.New("unhandled category")

	// ErrInvalidMessage indicates that a received message cannot be dispatched by a category handler.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrUnexpectedReplyType indicates that a reply payload is not of the type the caller expected.
	ErrUnexpectedReplyType = errors.New("unexpected reply type")

	// ErrDeserialize indicates that a message payload could not be deserialized.
	ErrDeserialize = errors.New("message deserialization failed")

	// ErrTransportStatus indicates that a received header carried a non-zero status code.
	ErrTransportStatus = errors.New("transport status fault")

	// ErrInvalidTransactionWeight indicates that an operation requiring a heavyweight transaction
	// was called inside a lightweight transaction.
	ErrInvalidTransactionWeight = errors.New("invalid transaction weight")
)

// DuplicateCategoryError is returned when a second handler is installed for a category.
type DuplicateCategoryError struct {
	Category MessageCategory
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateCategory, e.Category)
}

func (e *DuplicateCategoryError) Is(target error) bool { return target == ErrDuplicateCategory }

// ConnectionLevelCategoryError is returned when asked to uninstall a connection-level category.
type ConnectionLevelCategoryError struct {
	Category MessageCategory
}

func (e *ConnectionLevelCategoryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConnectionLevelCategory, e.Category)
}

func (e *ConnectionLevelCategoryError) Is(target error) bool {
	return target == ErrConnectionLevelCategory
}

// UnhandledCategoryError is returned when a message arrives for a category without an installed handler.
type UnhandledCategoryError struct {
	Category MessageCategory
	Header   ApplicationHeaderSegment
}

func (e *UnhandledCategoryError) Error() string {
	return fmt.Sprintf("%s: %s (message number %d, channel %s)",
		ErrUnhandledCategory, e.Category, e.Header.MessageNumber, Channel(e.Header.Channel))
}

func (e *UnhandledCategoryError) Is(target error) bool { return target == ErrUnhandledCategory }

// InvalidMessageError is returned when a category handler cannot dispatch a message.
type InvalidMessageError struct {
	Category MessageCategory
	Type     reflect.Type
	Reason   string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("%s: category %s, type %v, %s", ErrInvalidMessage, e.Category, e.Type, e.Reason)
}

func (e *InvalidMessageError) Is(target error) bool { return target == ErrInvalidMessage }

// UnexpectedReplyTypeError is returned when a reply payload cannot be assigned to the expected type.
type UnexpectedReplyTypeError struct {
	Category MessageCategory
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *UnexpectedReplyTypeError) Error() string {
	return fmt.Sprintf("%s: category %s, expected %v, got %v", ErrUnexpectedReplyType, e.Category, e.Expected, e.Actual)
}

func (e *UnexpectedReplyTypeError) Is(target error) bool { return target == ErrUnexpectedReplyType }

// DeserializationError wraps a payload decoding failure with the full context of the frame.
type DeserializationError struct {
	Header ApplicationHeaderSegment
	XML    string
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("%s: message number %d, category %s, channel %s, transaction id %d, xml %q: %v",
		ErrDeserialize,
		e.Header.MessageNumber,
		MessageCategory(e.Header.ApiCategory),
		Channel(e.Header.Channel),
		e.Header.TransactionIdentifier,
		e.XML,
		e.Err,
	)
}

func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialize }

func (e *DeserializationError) Unwrap() error { return e.Err }

// TransactionWeightError is returned by MustHaveHeavyweightTransaction inside a lightweight transaction.
type TransactionWeightError struct {
	Operation string
}

func (e *TransactionWeightError) Error() string {
	return fmt.Sprintf("%s: %s requires a heavyweight transaction", ErrInvalidTransactionWeight, e.Operation)
}

func (e *TransactionWeightError) Is(target error) bool { return target == ErrInvalidTransactionWeight }
