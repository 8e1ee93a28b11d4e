package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"pgmirror/shared/application/ports"
)

// MockStorage is a mock implementation of ports.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	args := m.Called(ctx, bucket, key, reader, metadata)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectMetadata, error) {
	args := m.Called(ctx, bucket, key)

	var reader io.ReadCloser
	var metadata *ports.ObjectMetadata
	if args.Get(0) != nil {
		reader = args.Get(0).(io.ReadCloser)
	}
	if args.Get(1) != nil {
		metadata = args.Get(1).(*ports.ObjectMetadata)
	}
	return reader, metadata, args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.ObjectInfo), args.Error(1)
}
