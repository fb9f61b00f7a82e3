package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/campusledger/campusledger/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   map[string]MockResponse
	requests []*httpclient.Request
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	Err        error
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
	}
}

// RegisterResponse registers a mock response for a method and URL
func (m *MockHTTPClient) RegisterResponse(method, url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[method+" "+url] = resp
}

// Requests returns the requests seen so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*httpclient.Request(nil), m.requests...)
}

// Send returns the registered response for the request
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	resp, ok := m.routes[req.Method+" "+req.URL]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no mock response registered for %s %s", req.Method, req.URL)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	statusCode := resp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	return &httpclient.Response{
		StatusCode: statusCode,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}, nil
}
