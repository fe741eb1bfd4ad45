package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
)

// Client posts trigger summaries to the analysis service over HTTP and
// parses the verdict. The service receives numbers only; whatever reasoning
// it runs on them stays on its side of the wire.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg *infra.Config) *Client {
	return &Client{
		url: cfg.Analysis.URL,
		httpClient: &http.Client{
			Timeout: cfg.AnalysisTimeout(),
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: slog.Default().With("module", "analysis_client"),
	}
}

// Analyze posts the summary and blocks until the service answers or ctx
// expires. The caller owns the deadline.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewNetworkError("analyze", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("analyze", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("analysis service returned status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.NewNetworkError("analyze", statusErr)
		}
		return nil, domain.NewFatalNetworkError("analyze", statusErr)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	// Anything other than an explicit verdict is treated as no answer so the
	// caller falls back to its conservative default.
	if result.Verdict != domain.VerdictConfirm && result.Verdict != domain.VerdictReject {
		return nil, fmt.Errorf("analysis returned unknown verdict %q", result.Verdict)
	}

	return &result, nil
}
