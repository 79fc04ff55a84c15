package handlers

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type mockStorage struct {
	mu sync.Mutex

	UploadProductImageFn func(filename, contentType string) (string, error)
	ImportProductImageFn func(imageURL string, productID uint) (string, error)
	DeleteFileFn         func(objectPath string) error

	DeleteFileCalls []string
	UploadCallCount int
	UploadedBytes   []byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{DeleteFileCalls: []string{}}
}

func (m *mockStorage) UploadProductImage(ctx context.Context, file io.Reader, filename, contentType string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.UploadCallCount++
	m.UploadedBytes = data
	m.mu.Unlock()

	if m.UploadProductImageFn != nil {
		return m.UploadProductImageFn(filename, contentType)
	}
	return "https://storage.googleapis.com/test-bucket/products/" + filename, nil
}

func (m *mockStorage) ImportProductImage(ctx context.Context, imageURL string, productID uint) (string, error) {
	m.mu.Lock()
	m.UploadCallCount++
	m.mu.Unlock()

	if m.ImportProductImageFn != nil {
		return m.ImportProductImageFn(imageURL, productID)
	}
	return fmt.Sprintf("https://storage.googleapis.com/test-bucket/products/%d_imported.jpg", productID), nil
}

func (m *mockStorage) DeleteFile(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	m.DeleteFileCalls = append(m.DeleteFileCalls, objectPath)
	m.mu.Unlock()

	if m.DeleteFileFn != nil {
		return m.DeleteFileFn(objectPath)
	}
	return nil
}
