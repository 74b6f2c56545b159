// Package storage uploads proof documents to the external file service. The
// service accepts base64 content and returns the public URL of the stored
// object.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"lending-engine/internal/pkg/apperrors"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type uploadRequest struct {
	Path          string `json:"path"`
	ContentBase64 string `json:"contentBase64"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "StorageClient"),
	}
}

// Upload stores the base64 content under the given path and returns the URL
// the file service assigned.
func (c *Client) Upload(ctx context.Context, contentBase64, path string) (string, error) {
	body, err := json.Marshal(uploadRequest{Path: path, ContentBase64: contentBase64})
	if err != nil {
		return "", fmt.Errorf("marshaling upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: file service unreachable: %v", apperrors.ErrInternalServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.ErrorContext(ctx, "File service rejected upload",
			"status", resp.StatusCode, "path", path, "body", string(snippet))
		return "", fmt.Errorf("%w: file service returned status %d", apperrors.ErrInternalServer, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: file service returned no URL", apperrors.ErrInternalServer)
	}

	c.logger.DebugContext(ctx, "Uploaded proof document", "path", path, "url", out.URL)
	return out.URL, nil
}
