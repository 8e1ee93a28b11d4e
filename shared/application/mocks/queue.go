package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pgmirror/shared/application/ports"
)

// MockQueue is a mock implementation of ports.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *MockQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockCatalog is a mock implementation of ports.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Books(ctx context.Context, q ports.BookQuery) ([]ports.CatalogBook, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.CatalogBook), args.Error(1)
}

// MockHandler is a mock implementation of ports.Handler
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.RuntimeResponse), args.Error(1)
}
