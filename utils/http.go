// utils/http.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ErrRemoteNotFound is returned by FetchBytes for a 404.
var ErrRemoteNotFound = errors.New("remote resource not found")

// FetchBytes GETs url with an optional X-Service-Token header and returns the body.
func FetchBytes(ctx context.Context, client *http.Client, url, serviceToken string) ([]byte, error) {
	if client == nil {
		client = HTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", url, err)
	}
	if serviceToken != "" {
		req.Header.Set("X-Service-Token", serviceToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to %s failed: %w", url, err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRemoteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	return body, nil
}
