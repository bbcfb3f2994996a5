//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestRequestIDHeader(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response should carry X-Request-ID")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/livez", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("X-Request-ID", "integration-test-request-id")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("GET /livez: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "integration-test-request-id" {
		t.Errorf("X-Request-ID = %q, want echo of the provided value", got)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("response should carry %s", h)
		}
	}
}
