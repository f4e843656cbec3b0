package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/nfrund/podclient/internal/domain"
)

// UploadRequest describes a file about to be uploaded.
type UploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	Size        int64  `json:"size" validate:"gt=0"`
}

// RequestUpload asks the backend for a presigned upload slot.
func (c *Client) RequestUpload(ctx context.Context, req UploadRequest) (*domain.UploadTicket, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out domain.UploadTicket
	if err := c.post(ctx, "/api/uploads/presign", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutObject streams the file to the presigned URL. Storage does not accept
// the bearer token, so this bypasses the authenticated request path.
func (c *Client) PutObject(ctx context.Context, ticket *domain.UploadTicket, contentType string, r io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.UploadURL, r)
	if err != nil {
		return transportError(err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "Upload to storage failed", "event", "upload_transport_error", "key", ticket.Key, "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= http.StatusMultipleChoices {
		slog.ErrorContext(ctx, "Storage rejected upload", "event", "upload_rejected", "key", ticket.Key, "status", resp.StatusCode)
		return &Error{Status: resp.StatusCode, Message: "Upload failed"}
	}
	return nil
}

// ConfirmUpload tells the backend the object is in place and returns its public URL.
func (c *Client) ConfirmUpload(ctx context.Context, key string) (string, error) {
	req := struct {
		Key string `json:"key" validate:"required"`
	}{Key: key}
	if err := c.check(req); err != nil {
		return "", err
	}
	var out struct {
		File struct {
			URL string `json:"url"`
		} `json:"file"`
	}
	if err := c.post(ctx, "/api/uploads/confirm", req, &out); err != nil {
		return "", err
	}
	return out.File.URL, nil
}

// Upload runs the presigned flow: request a slot, PUT the bytes, confirm.
func (c *Client) Upload(ctx context.Context, req UploadRequest, r io.Reader) (string, error) {
	ticket, err := c.RequestUpload(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.PutObject(ctx, ticket, req.ContentType, r, req.Size); err != nil {
		return "", err
	}
	return c.ConfirmUpload(ctx, ticket.Key)
}
