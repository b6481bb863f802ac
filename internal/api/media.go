package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadToPresignedURL PUTs photo bytes to a presigned object-storage URL
// handed out by the audit API. Presigned URLs carry their own auth, so no
// bearer token is attached.
func (c *Client) UploadToPresignedURL(ctx context.Context, presignedURL string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return &Error{Kind: KindPermanent, Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyResponse(resp.StatusCode, []byte(fmt.Sprintf("upload failed: %s; body: %s", resp.Status, b)))
	}
	return nil
}
