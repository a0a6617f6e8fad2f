package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/thread-dump-analysis/pkg/model"
)

// MockReportStore is a mock implementation of the repository.ReportStore interface.
type MockReportStore struct {
	mock.Mock
}

// Save mocks the Save method.
func (m *MockReportStore) Save(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockReportStore) Get(ctx context.Context, id string) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

// List mocks the List method.
func (m *MockReportStore) List(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReportSummary), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockReportStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Count mocks the Count method.
func (m *MockReportStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Close mocks the Close method.
func (m *MockReportStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ExpectSave sets up an expectation for any Save call.
func (m *MockReportStore) ExpectSave(err error) *mock.Call {
	return m.On("Save", mock.Anything, mock.Anything).Return(err)
}

// ExpectGet sets up an expectation for Get.
func (m *MockReportStore) ExpectGet(id string, report *model.Report, err error) *mock.Call {
	return m.On("Get", mock.Anything, id).Return(report, err)
}

// ExpectList sets up an expectation for List.
func (m *MockReportStore) ExpectList(limit int, summaries []model.ReportSummary, err error) *mock.Call {
	return m.On("List", mock.Anything, limit).Return(summaries, err)
}
