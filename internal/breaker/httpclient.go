// v0
// httpclient.go
package breaker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClient wraps a standard http.Client with circuit breaker behavior, so
// a flaky upstream (comment source or sentiment endpoint) fast-fails a tick
// instead of hanging it, per spec.md §7's transient-error policy.
type HTTPClient struct {
	Client *http.Client
	brk    *Breaker
}

// NewHTTPClient builds a breaker-wrapped client. probeURL, if non-empty, is
// GETed once when the breaker tries to leave the Open state.
func NewHTTPClient(name string, cfg Config, logger *slog.Logger, probeURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	var probe func(ctx context.Context) error
	if probeURL != "" {
		probe = func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.CopyN(io.Discard, resp.Body, 64)
			if resp.StatusCode >= 200 && resp.StatusCode < 500 {
				return nil
			}
			return fmt.Errorf("probe_bad_status: %d", resp.StatusCode)
		}
	}
	brk := New(name, cfg, logger, probe)
	return &HTTPClient{Client: httpClient, brk: brk}
}

// Do executes req unless the breaker is open, in which case it returns
// ErrOpen without making the request.
func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := h.brk.Execute(req.Context(), func(ctx context.Context) error {
		r, err := h.Client.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("upstream_status: %d", r.StatusCode)
		}
		resp = r
		return nil
	})
	return resp, err
}

// State exposes the underlying breaker state for the status API.
func (h *HTTPClient) State() State { return h.brk.State() }
