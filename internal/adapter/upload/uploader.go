// Package upload stores local images with a remote HTTP upload service.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
)

// Config configures the upload endpoint.
type Config struct {
	URL        string
	Preset     string
	Timeout    time.Duration
	MaxRetries int
	// RetryInterval is the first backoff delay; zero keeps the backoff default.
	RetryInterval time.Duration
}

// HTTPUploader implements usecase.ImageUploader with a multipart POST to an
// unsigned-upload endpoint that answers with {"secure_url": "..."}.
type HTTPUploader struct {
	cfg     Config
	client  *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewHTTPUploader creates a new HTTPUploader. m may be nil.
func NewHTTPUploader(cfg Config, logger zerolog.Logger, m *metrics.Metrics) *HTTPUploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &HTTPUploader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "uploader").Logger(),
		metrics: m,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload reads the local file at localRef and uploads it into folder.
func (u *HTTPUploader) Upload(ctx context.Context, localRef, folder string) (string, error) {
	start := time.Now()
	url, err := u.upload(ctx, localRef, folder)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if u.metrics != nil {
		u.metrics.Uploads.WithLabelValues(status).Inc()
		u.metrics.UploadDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		u.logger.Error().Err(err).Str("folder", folder).Msg("image upload failed")
		return "", fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}
	return url, nil
}

func (u *HTTPUploader) upload(ctx context.Context, localRef, folder string) (string, error) {
	if u.cfg.URL == "" {
		return "", errors.New("upload URL is not configured")
	}

	data, err := os.ReadFile(strings.TrimPrefix(localRef, "file://"))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localRef, err)
	}

	body, contentType, err := u.encode(filepath.Base(localRef), folder, data)
	if err != nil {
		return "", err
	}

	exp := backoff.NewExponentialBackOff()
	if u.cfg.RetryInterval > 0 {
		exp.InitialInterval = u.cfg.RetryInterval
		exp.MaxInterval = 10 * u.cfg.RetryInterval
	}
	b := backoff.WithMaxRetries(exp, uint64(u.cfg.MaxRetries))

	var url string
	err = backoff.Retry(func() error {
		var err error
		url, err = u.post(ctx, body, contentType)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return "", err
	}
	return url, nil
}

func (u *HTTPUploader) encode(name, folder string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if u.cfg.Preset != "" {
		if err := w.WriteField("upload_preset", u.cfg.Preset); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("folder", folder); err != nil {
		return nil, "", err
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// post sends one attempt. Client errors are permanent; network errors and 5xx are retried.
func (u *HTTPUploader) post(ctx context.Context, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	var parsed uploadResponse
	_ = json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("upload service returned %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		msg := strings.TrimSpace(string(raw))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", backoff.Permanent(fmt.Errorf("upload rejected with %d: %s", resp.StatusCode, msg))
	}

	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", backoff.Permanent(errors.New("upload response has no url"))
}
