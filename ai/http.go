package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends body as JSON and decodes a 200 response into out.
// Network failures are transient; status errors are classified by code.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewFatalError(fmt.Errorf("%s encode request: %w", provider, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return NewFatalError(fmt.Errorf("%s build request: %w", provider, err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s request: %w", provider, ctx.Err())
		}
		return NewTransientError(fmt.Errorf("%s request failed: %w", provider, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewTransientError(fmt.Errorf("%s read response: %w", provider, err))
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(provider, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewFatalError(fmt.Errorf("%s parse error: %w", provider, err))
	}
	return nil
}
