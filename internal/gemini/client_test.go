package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"geminibridge/internal/credentials"
)

type stubProvider struct {
	creds     *credentials.OAuthCredentials
	refreshed int
}

func (p *stubProvider) GetCredentials() (*credentials.OAuthCredentials, error) { return p.creds, nil }
func (p *stubProvider) SaveCredentials(*credentials.OAuthCredentials) error   { return nil }
func (p *stubProvider) RefreshToken() error                                   { p.refreshed++; return nil }
func (p *stubProvider) Name() string                                          { return "stub" }

type scriptedClient struct {
	responses []*http.Response
	requests  []*http.Request
}

func (c *scriptedClient) Do(req *http.Request) (*http.Response, error) {
	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(responses ...*http.Response) (*Client, *scriptedClient, *stubProvider) {
	hc := &scriptedClient{responses: responses}
	provider := &stubProvider{creds: &credentials.OAuthCredentials{AccessToken: "tok"}}
	c := &Client{
		httpClient: hc,
		provider:   provider,
		endpoint:   CodeAssistEndpoint,
	}
	return c, hc, provider
}

func TestCallEndpoint(t *testing.T) {
	c, hc, _ := newTestClient(jsonResponse(200, `{"ok":true}`))

	body, err := c.CallEndpoint(context.Background(), "loadCodeAssist", map[string]string{"a": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}

	req := hc.requests[0]
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
	if !strings.HasSuffix(req.URL.String(), "/v1internal:loadCodeAssist") {
		t.Errorf("URL = %s", req.URL)
	}
}

func TestCallEndpointRefreshesOnceOn401(t *testing.T) {
	c, hc, provider := newTestClient(
		jsonResponse(401, `unauthorized`),
		jsonResponse(200, `{"ok":true}`),
	)

	body, err := c.CallEndpoint(context.Background(), "generateContent", map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if provider.refreshed != 1 {
		t.Errorf("refreshed %d times, want 1", provider.refreshed)
	}
	if len(hc.requests) != 2 {
		t.Errorf("made %d requests, want 2", len(hc.requests))
	}
}

func TestCallEndpointUpstreamError(t *testing.T) {
	c, _, _ := newTestClient(jsonResponse(429, `quota exceeded`))

	_, err := c.CallEndpoint(context.Background(), "generateContent", map[string]string{})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.StatusCode != 429 || !ue.IsRateLimit() {
		t.Errorf("UpstreamError = %+v", ue)
	}
	if ue.Body != "quota exceeded" {
		t.Errorf("body = %q", ue.Body)
	}
}

func TestStreamEndpointErrorReadsBody(t *testing.T) {
	c, _, _ := newTestClient(jsonResponse(503, `overloaded`))

	_, err := c.StreamEndpoint(context.Background(), "streamGenerateContent?alt=sse", map[string]string{})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.StatusCode != 503 || ue.Body != "overloaded" {
		t.Errorf("UpstreamError = %+v", ue)
	}
	if !ue.IsRateLimit() {
		t.Error("503 should count as rate limiting")
	}
}
