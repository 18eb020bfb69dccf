package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetchWithTimeout performs a bounded HTTP request. The caller's context
// is composed with a local timeout: when the timeout elapses first the
// request fails with a FetchTimeoutError carrying the fixed message
// "Fetch timeout after <ms>ms"; when the caller cancels first, the
// caller's cause propagates unchanged. The timer is released on exit.
func fetchWithTimeout(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration) (*http.Response, error) {
	if timeout > 0 {
		timeoutErr := &FetchTimeoutError{LoopError: LoopError{
			Message: fmt.Sprintf("Fetch timeout after %dms", timeout.Milliseconds()),
		}}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, timeoutErr)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		return nil, err
	}
	return resp, nil
}

// postJSON sends a JSON body and returns the response payload. Non-2xx
// statuses are classified through the error taxonomy.
func postJSON(ctx context.Context, provider, url string, headers map[string]string, body []byte, timeout time.Duration) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	resp, err := fetchWithTimeout(ctx, http.MethodPost, url, headers, body, timeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrorFromStatusCode(resp.StatusCode, provider, string(payload))
	}
	return payload, nil
}
