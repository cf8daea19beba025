package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
)

// Client calls the external receipt extraction service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: opts.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 15 * time.Second
			return b
		},
	}
}

type extractRequest struct {
	ClaimID    string `json:"claim_id"`
	ReceiptRef string `json:"receipt_ref"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	ClaimDate  string `json:"claim_date"`
}

// Extract implements claim.Extractor. Transport errors and 5xx responses
// are retried; any other failure is returned wrapped in
// claim.ErrVerifierUnavailable.
func (c *Client) Extract(ctx context.Context, cl claim.Claim) (claim.Extraction, error) {
	if c.baseURL == "" {
		return claim.Extraction{}, fmt.Errorf("%w: no base URL configured", claim.ErrVerifierUnavailable)
	}

	body, err := json.Marshal(extractRequest{
		ClaimID:    cl.ID,
		ReceiptRef: cl.ReceiptRef,
		Category:   cl.Category,
		Amount:     cl.Amount.StringFixed(2),
		ClaimDate:  cl.ClaimDate.Format("2006-01-02"),
	})
	if err != nil {
		return claim.Extraction{}, err
	}

	var result claim.Extraction
	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/receipts/extract", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("receipt service returned %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("receipt service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode extraction: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		slog.Warn("receipt extraction failed", "claim_id", cl.ID, "attempts", attempt, "error", err)
		return claim.Extraction{}, fmt.Errorf("%w: %v", claim.ErrVerifierUnavailable, err)
	}
	return result, nil
}
