package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const maxLoggedBody = 2048

// postJSON sends payload and returns the response body. Non-2xx statuses are
// reported as "<provider> error: <status>: <detail>".
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any, log *slog.Logger) (io.Reader, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	log.Debug("model request", "provider", provider, "url", url, "payload", truncate(string(body), maxLoggedBody))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("%s error: %s: %s", provider, resp.Status, detail)
		}
		return nil, fmt.Errorf("%s error: %s", provider, resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	log.Debug("model response", "provider", provider, "url", url, "payload", truncate(string(responseBody), maxLoggedBody))
	return bytes.NewReader(responseBody), nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
