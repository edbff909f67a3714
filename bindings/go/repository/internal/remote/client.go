package remote

import (
	"net/http"
	"time"

	"oras.land/oras-go/v2/registry/remote/retry"
)

const defaultUserAgent = "gradle2nix"

// ClientOptions holds configuration for creating an HTTP client.
type ClientOptions struct {
	timeout   time.Duration
	userAgent string
}

// ClientOption is a functional option for NewClient.
type ClientOption func(*ClientOptions)

// WithTimeout sets the overall timeout of a single request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		o.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header for HTTP requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(o *ClientOptions) {
		o.userAgent = userAgent
	}
}

// userAgentTransport wraps an http.RoundTripper and injects a User-Agent header.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewClient creates an HTTP client that retries transient failures
// (429 and 5xx responses, temporary network errors) with backoff.
func NewClient(opts ...ClientOption) *http.Client {
	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	userAgent := defaultUserAgent
	if options.userAgent != "" {
		userAgent = options.userAgent
	}

	return &http.Client{
		Transport: &userAgentTransport{
			base:      retry.DefaultClient.Transport,
			userAgent: userAgent,
		},
		Timeout: options.timeout,
	}
}
