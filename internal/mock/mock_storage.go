package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockStorage stands in for a report bucket in exporter tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *MockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) GetURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectReportUpload expects the artifact for one exported report key.
func (m *MockStorage) ExpectReportUpload(key string, err error) *mock.Call {
	return m.On("Upload", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectAnyReportUpload expects an upload under any key, typically to fail it.
func (m *MockStorage) ExpectAnyReportUpload(err error) *mock.Call {
	return m.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(err)
}

// ExpectReportURL answers GetURL for key with the bucket URL of the report.
func (m *MockStorage) ExpectReportURL(key, url string) *mock.Call {
	return m.On("GetURL", key).Return(url)
}
