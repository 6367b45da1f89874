package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"geminibridge/internal/credentials"
	"geminibridge/internal/httpclient"
	"geminibridge/internal/logger"
)

// UpstreamError is a non-2xx reply from the Code Assist API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream call failed with status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimit reports whether this error should trigger model fallback.
func (e *UpstreamError) IsRateLimit() bool {
	return IsRateLimitStatus(e.StatusCode)
}

// Client is a client for the Code Assist Gemini API.
type Client struct {
	httpClient httpclient.HTTPClient
	provider   credentials.CredentialsProvider
	endpoint   string

	projectID string // resolved once by DiscoverProject
}

// NewClient creates a new Code Assist API client.
func NewClient(provider credentials.CredentialsProvider) *Client {
	return &Client{
		httpClient: httpclient.New(),
		provider:   provider,
		endpoint:   CodeAssistEndpoint,
	}
}

// newRequest builds an authenticated request for the given method suffix.
func (c *Client) newRequest(ctx context.Context, method string, body []byte, accept string) (*http.Request, error) {
	creds, err := c.provider.GetCredentials()
	if err != nil {
		return nil, fmt.Errorf("unable to get credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("access token is empty")
	}

	url := fmt.Sprintf("%s/%s:%s", c.endpoint, CodeAssistAPIVersion, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "GeminiCLI/v23.5.0 (darwin; arm64) google-api-nodejs-client/9.15.1")
	req.Header.Set("x-goog-api-client", "gl-node/23.5.0")
	req.Header.Set("Accept", accept)
	return req, nil
}

// do executes the request, retrying exactly once after a token refresh when
// the first attempt comes back 401. A 401 on the retry is returned as-is.
func (c *Client) do(ctx context.Context, method string, body []byte, accept string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, body, accept)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request execution error: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		logger.Get().Info().Str("method", method).Msg("Received 401, refreshing token and retrying once")

		if err := c.provider.RefreshToken(); err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}

		req, err = c.newRequest(ctx, method, body, accept)
		if err != nil {
			return nil, err
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request execution error after refresh: %w", err)
		}
	}

	return resp, nil
}

// CallEndpoint issues a non-streaming POST to a Code Assist method and
// returns the raw response body.
func (c *Client) CallEndpoint(ctx context.Context, method string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request body: %w", err)
	}

	resp, err := c.do(ctx, method, bodyBytes, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// StreamEndpoint issues a streaming POST and hands the SSE body to the
// caller. The caller owns closing the returned reader.
func (c *Client) StreamEndpoint(ctx context.Context, method string, body interface{}) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request body: %w", err)
	}

	resp, err := c.do(ctx, method, bodyBytes, "text/event-stream")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("(read error: %v)", readErr)}
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp.Body, nil
}

// GenerateContent performs a non-streaming generation request.
func (c *Client) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	respBody, err := c.CallEndpoint(ctx, "generateContent", req)
	if err != nil {
		return nil, err
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response body: %w", err)
	}
	return &result, nil
}

// StreamGenerateContent performs a streaming generation request and returns
// the raw SSE byte stream.
func (c *Client) StreamGenerateContent(ctx context.Context, req *GenerateContentRequest) (io.ReadCloser, error) {
	return c.StreamEndpoint(ctx, "streamGenerateContent?alt=sse", req)
}
