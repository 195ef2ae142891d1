package f2x

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode_Description(t *testing.T) {
	tests := []struct {
		code StatusCode
		want string
	}{
		{StatusNoError, "no error"},
		{StatusUnspecifiedError, "unspecified error"},
		{StatusCategoryNotFound, "category not found"},
		{StatusTokenMissing, "token missing"},
		{StatusNoOpenTransaction, "no open transaction"},
		{StatusMessageDecodeError, "message decode error"},
		{StatusInvalidMessageBody, "invalid message body"},
		{StatusInvalidVersion, "invalid version"},
		{StatusInvalidTransactionChannel, "invalid channel for a transactional message"},
		{StatusCode(2), "no description available for status code"},
		{StatusCode(-8), "no description available for status code"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Description())
		})
	}
}

func TestStatusError(t *testing.T) {
	err := error(NewStatusError(ApplicationHeaderSegment{MessageNumber: 2, ApiCategory: 100, Channel: 2, StatusCode: -3}))

	assert.ErrorIs(t, err, ErrTransportStatus)
	assert.Contains(t, err.Error(), "no open transaction")

	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StatusNoOpenTransaction, statusErr.Code)
	assert.Equal(t, "-3 (no open transaction)", statusErr.Code.String())
}
