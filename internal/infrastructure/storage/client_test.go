package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-engine/internal/infrastructure/storage"
	"lending-engine/internal/pkg/apperrors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpload(t *testing.T) {
	var gotPath, gotContent, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/files", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Path          string `json:"path"`
			ContentBase64 string `json:"contentBase64"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPath, gotContent = req.Path, req.ContentBase64

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://files.local/" + req.Path})
	}))
	defer srv.Close()

	client := storage.NewClient(srv.URL, "secret-key", time.Second, testLogger())
	url, err := client.Upload(context.Background(), "dGVzdA==", "loans/7/payments/905/receipt.pdf")
	require.NoError(t, err)

	assert.Equal(t, "https://files.local/loans/7/payments/905/receipt.pdf", url)
	assert.Equal(t, "loans/7/payments/905/receipt.pdf", gotPath)
	assert.Equal(t, "dGVzdA==", gotContent)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := storage.NewClient(srv.URL, "", time.Second, testLogger())
	_, err := client.Upload(context.Background(), "dGVzdA==", "loans/7/x")
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
}

func TestUploadMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := storage.NewClient(srv.URL, "", time.Second, testLogger())
	_, err := client.Upload(context.Background(), "dGVzdA==", "loans/7/x")
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
}

func TestUploadUnreachable(t *testing.T) {
	client := storage.NewClient("http://127.0.0.1:1", "", 200*time.Millisecond, testLogger())
	_, err := client.Upload(context.Background(), "dGVzdA==", "loans/7/x")
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
}
