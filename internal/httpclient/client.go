package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is the per-adapter HTTP client named in spec §4.1: a token-bucket
// rate limiter (golang.org/x/time/rate) in front of a retrying transport,
// with its own Stats. The limiter is not a sliding window: a full bucket
// admits a burst of maxRequests at once and then refills one token every
// window/maxRequests.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
	Policy  RetryPolicy
	Stats   *Stats
}

// NewClient builds a Client whose limiter has a burst of maxRequests and
// refills at maxRequests per window (e.g. 100 requests / 1 minute). Because
// the burst and the refill add up, one window can admit up to about twice
// maxRequests when the bucket starts full.
func NewClient(maxRequests int, window time.Duration, policy RetryPolicy) *Client {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	every := window / time.Duration(maxRequests)
	return &Client{
		HTTP:    Default(),
		Limiter: rate.NewLimiter(rate.Every(every), maxRequests),
		Policy:  policy,
		Stats:   &Stats{},
	}
}

// Do waits for rate-limiter headroom (preemptive wait, counted when the
// call actually blocks), then performs req with retry/backoff per Policy.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reservation := c.Limiter.Reserve()
	if d := reservation.Delay(); d > 0 {
		c.Stats.incPreemptiveWait()
		if err := sleepCtx(ctx, d); err != nil {
			reservation.Cancel()
			return nil, err
		}
	}
	return DoWithRetry(ctx, c.HTTP, req, c.Policy, c.Stats)
}

// Get issues a GET request to url through Do.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}
