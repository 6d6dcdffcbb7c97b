// Package netx moves image attachments to and from object storage through
// presigned URLs.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

const defaultContentType = "application/octet-stream"

type Uploader struct {
	client *http.Client
}

// NewUploader uses http.DefaultClient when client is nil.
func NewUploader(client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{client: client}
}

// Upload PUTs data to a presigned URL.
func (u *Uploader) Upload(ctx context.Context, url, contentType string, data []byte) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// UploadFile reads path and uploads its content.
func (u *Uploader) UploadFile(ctx context.Context, url, contentType, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return u.Upload(ctx, url, contentType, data)
}
