package httpclient

import (
	"net"
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP client operations so tests can substitute a stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// New creates the shared HTTP client used for all upstream calls.
func New() HTTPClient {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  true, // Important for SSE
			// Enable HTTP/2
			ForceAttemptHTTP2: true,
		},
	}
}
