package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock of Logger.
//
// Log methods record (msg, keysAndValues) with keysAndValues as a single []any argument, so
// expectations are usually set as:
//
//	m.On("Debug", mock.Anything, mock.Anything).Return()
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Info(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Warn(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Fatal(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) SetLevel(level LogLevel) {
	m.Called(level)
}

func (m *MockLogger) Level() LogLevel {
	args := m.Called()
	return args.Get(0).(LogLevel)
}

// With records keyValues as a single []any argument. The child logger is the mock itself
// unless the expectation returns another Logger.
func (m *MockLogger) With(keyValues ...any) Logger {
	args := m.Called(keyValues)
	if l, ok := args.Get(0).(Logger); ok {
		return l
	}

	return m
}
