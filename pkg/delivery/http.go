package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

// DefaultRequestTimeout bounds one POST.
const DefaultRequestTimeout = 5 * time.Second

// maxReplySize caps the reply body read from a receiver.
const maxReplySize = 4096

// HTTPPoster posts JSON bodies over HTTP.
type HTTPPoster struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPPoster returns a poster with the given per-request timeout.
func NewHTTPPoster(timeout time.Duration) *HTTPPoster {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPPoster{
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

// Post sends body to ep and returns the status and reply body.
func (p *HTTPPoster) Post(ctx context.Context, ep discovery.Endpoint, body []byte) (int, []byte, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	// A truncated reply still carries a valid status.
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	return resp.StatusCode, reply, nil
}

var _ Poster = (*HTTPPoster)(nil)
