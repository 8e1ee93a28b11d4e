package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"pgmirror/shared/application/ports"
)

// MockDatabase is a mock implementation of ports.Database
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	a := m.Called(ctx, query, args)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(sql.Result), a.Error(1)
}

func (m *MockDatabase) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return m.Called(ctx, dest, query, args).Error(0)
}

func (m *MockDatabase) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return m.Called(ctx, dest, query, args).Error(0)
}

func (m *MockDatabase) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *MockDatabase) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDatabase) Close() error {
	return m.Called().Error(0)
}
