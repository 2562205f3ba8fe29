package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"triageapi/internal/config"
	"triageapi/internal/model"
)

// httpExtractor calls a remote extraction service over HTTP. The document
// bytes are posted as the request body with their declared content type; the
// service answers with the extraction result as JSON.
type httpExtractor struct {
	baseURL string
	client  *http.Client
}

// extractResponse is the wire shape of the extraction service response.
// On failure the service sets error to a human-readable reason.
type extractResponse struct {
	Text       string                `json:"text"`
	Structured *model.StructuredData `json:"structured"`
	Error      string                `json:"error"`
}

// NewHTTP creates an Extractor backed by a remote extraction service.
// Outgoing requests carry trace context via otelhttp.
func NewHTTP(cfg config.ExtractorConfig) (Extractor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("extractor base URL is required")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpExtractor{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (e *httpExtractor) Extract(ctx context.Context, data []byte, contentType string) (*model.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}

	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		reason := out.Error
		if reason == "" {
			reason = fmt.Sprintf("extraction service returned status %d", resp.StatusCode)
		}
		return nil, &ExtractionError{Reason: reason}
	}
	if out.Error != "" {
		return nil, &ExtractionError{Reason: out.Error}
	}

	res := &model.ExtractionResult{Text: out.Text, Structured: out.Structured}
	if res.Structured == nil {
		// The service may omit the field entirely for documents with no
		// recognizable clinical content; callers expect a non-nil payload
		// on success.
		res.Structured = &model.StructuredData{}
	}
	return res, nil
}
