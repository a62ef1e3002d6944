package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iho/expenseledger/internal/adapter/http/dto"
)

// apiClient calls the expense ledger HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listWallets(ctx context.Context, uid string) (*dto.ListWalletsResponse, error) {
	var resp dto.ListWalletsResponse
	if err := c.do(ctx, http.MethodGet, "/wallets", url.Values{"uid": {uid}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) purgeWallet(ctx context.Context, walletID string) (*dto.PurgeResponse, error) {
	var resp dto.PurgeResponse
	if err := c.do(ctx, http.MethodPost, "/wallets/"+url.PathEscape(walletID)+"/purge", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) reconcile(ctx context.Context, uid string) (*dto.ReconciliationReportResponse, error) {
	var resp dto.ReconciliationReportResponse
	if err := c.do(ctx, http.MethodGet, "/reconcile", url.Values{"uid": {uid}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) stats(ctx context.Context, uid, period string) (*dto.StatsResponse, error) {
	var resp dto.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", url.Values{"uid": {uid}, "period": {period}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
