package netx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultProbeURL     = "https://clients3.google.com/generate_204"
	defaultProbeTimeout = 3 * time.Second

	// total probe budget stays under ~8s: 3s + 0.5s + 3s + 1s + up to 3s
	// is bounded by per-attempt timeouts and two retries.
	probeRetries = 2
)

// Prober verifies that the internet is actually reachable, beyond the
// transport layer reporting a link.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber probes a well-known endpoint with short per-attempt timeouts
// and a bounded fibonacci backoff. Any response proves reachability; the
// status code does not matter.
type HTTPProber struct {
	url    string
	client *http.Client
}

func NewHTTPProber(url string) *HTTPProber {
	if url == "" {
		url = defaultProbeURL
	}
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: defaultProbeTimeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	backoff := retry.WithMaxRetries(probeRetries, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("probe %s: %w", p.url, err))
		}
		_ = resp.Body.Close()
		return nil
	})
}
