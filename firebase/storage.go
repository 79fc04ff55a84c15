package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no bucket or app is set up.
var ErrNotConfigured = errors.New("firebase storage not configured")

// StorageClient is the image store used by the product handlers.
type StorageClient interface {
	UploadProductImage(ctx context.Context, file io.Reader, filename, contentType string) (string, error)
	ImportProductImage(ctx context.Context, imageURL string, productID uint) (string, error)
	DeleteFile(ctx context.Context, objectPath string) error
}

// FirebaseStorageClient writes to one bucket of a Firebase app.
type FirebaseStorageClient struct {
	App    *firebase.App
	Bucket string
	HTTP   *http.Client
}

func NewStorageClient(app *firebase.App, bucket string) *FirebaseStorageClient {
	return &FirebaseStorageClient{
		App:    app,
		Bucket: bucket,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *FirebaseStorageClient) bucket(ctx context.Context) (*storage.BucketHandle, error) {
	if f.App == nil || f.Bucket == "" {
		return nil, ErrNotConfigured
	}
	client, err := f.App.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return client.Bucket(f.Bucket)
}

// put streams r into objectPath and makes it publicly readable.
func (f *FirebaseStorageClient) put(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	bucket, err := f.bucket(ctx)
	if err != nil {
		return "", err
	}

	obj := bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		slog.Warn("failed to set public ACL", "object", objectPath, "error", err)
	}

	return PublicURL(f.Bucket, objectPath), nil
}

func (f *FirebaseStorageClient) UploadProductImage(ctx context.Context, file io.Reader, filename, contentType string) (string, error) {
	objectPath := fmt.Sprintf("products/%d_%s", time.Now().Unix(), sanitizeFilename(filename))
	return f.put(ctx, objectPath, file, contentType)
}

// ImportProductImage downloads an image from a public URL and stores a copy.
func (f *FirebaseStorageClient) ImportProductImage(ctx context.Context, imageURL string, productID uint) (string, error) {
	if err := validateExternalURL(imageURL); err != nil {
		return "", fmt.Errorf("URL validation failed for %s: %w", imageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image from %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("URL %s returned non-image content-type %q", imageURL, contentType)
	}

	objectPath := fmt.Sprintf("products/%d_%s", productID, uuid.NewString()[:8])
	return f.put(ctx, objectPath, io.LimitReader(resp.Body, 10<<20), contentType)
}

func (f *FirebaseStorageClient) DeleteFile(ctx context.Context, objectPath string) error {
	bucket, err := f.bucket(ctx)
	if err != nil {
		return err
	}
	if err := bucket.Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}
	slog.Info("deleted file from bucket", "object", objectPath, "bucket", f.Bucket)
	return nil
}
