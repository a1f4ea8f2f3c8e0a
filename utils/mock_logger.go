package utils

import "github.com/stretchr/testify/mock"

// MockLogger is a testify mock of Logger. Use NewMockLogger when a test only
// needs to inspect what was logged; set expectations with On otherwise.
type MockLogger struct {
	mock.Mock
}

// NewMockLogger accepts every call without explicit expectations.
func NewMockLogger() *MockLogger {
	m := &MockLogger{}
	for _, method := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(method, mock.Anything, mock.Anything).Maybe()
	}
	m.On("SetLevel", mock.Anything).Maybe()
	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level LogLevel) {
	m.Called(level)
}

// Messages returns the messages logged through method, in call order.
func (m *MockLogger) Messages(method string) []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == method {
			out = append(out, call.Arguments.String(0))
		}
	}
	return out
}
