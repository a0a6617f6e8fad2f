// Package mock provides mock implementations for testing.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/thread-dump-analysis/pkg/model"
)

// MockParser is a mock implementation of the parser.Parser interface.
type MockParser struct {
	mock.Mock
}

// Parse mocks the Parse method.
func (m *MockParser) Parse(ctx context.Context, reader io.Reader) ([]model.ThreadRecord, error) {
	args := m.Called(ctx, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ThreadRecord), args.Error(1)
}

// SupportedFormats mocks the SupportedFormats method.
func (m *MockParser) SupportedFormats() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// Name mocks the Name method.
func (m *MockParser) Name() string {
	args := m.Called()
	return args.String(0)
}

// ExpectParse sets up an expectation for Parse.
func (m *MockParser) ExpectParse(records []model.ThreadRecord, err error) *mock.Call {
	return m.On("Parse", mock.Anything, mock.Anything).Return(records, err)
}

// ExpectFormat registers the parser as format for both Name and SupportedFormats.
func (m *MockParser) ExpectFormat(format string) {
	m.On("Name").Return(format)
	m.On("SupportedFormats").Return([]string{format})
}
