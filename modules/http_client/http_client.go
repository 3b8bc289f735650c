// Package http_client provides the http_request operator, which performs
// an HTTP request with a client shared by every call of the run.
package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultTimeout applies when Module.Timeout is empty.
const DefaultTimeout = "30s"

// Module implements the registry.Module interface. It's the main entrypoint
// for the http_client module. The client is created on Register and
// shared by every operator instance.
type Module struct {
	// Timeout is a duration string such as "10s".
	Timeout string
	// Client overrides the client built from Timeout.
	Client *http.Client
}

// Register creates the shared client and registers the http_request
// operator.
func (m *Module) Register(r *registry.Registry) {
	if m.Client == nil {
		client, err := newClient(m.Timeout)
		if err != nil {
			panic(fmt.Sprintf("http_client: %v", err))
		}
		m.Client = client
	}

	desc := operator.Descriptor{
		Name: "http_request",
		Doc:  "This sends an HTTP request to url and returns the status code and body",
		Params: []operator.Param{
			operator.Required("url"),
			operator.Optional("method", http.MethodGet),
			operator.Optional("body", ""),
		},
	}
	t, err := operator.NewTemplate(desc, m.onRunHttpRequest, operator.DefaultOptions())
	if err != nil {
		panic(fmt.Sprintf("http_client: %v", err))
	}
	r.Register(t)
}

// Close releases idle connections of the shared client.
func (m *Module) Close() error {
	if m.Client != nil {
		m.Client.CloseIdleConnections()
	}
	return nil
}

func newClient(timeout string) (*http.Client, error) {
	if timeout == "" {
		timeout = DefaultTimeout
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	return &http.Client{
		Timeout: d,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}, nil
}

// onRunHttpRequest is the body of the http_request operator. Transport
// failures are raised as ConnectionError so they become exception nodes.
func (m *Module) onRunHttpRequest(ctx context.Context, in *operator.Args) (any, error) {
	var url, method, body string
	for name, target := range map[string]*string{"url": &url, "method": &method, "body": &body} {
		if err := in.Decode(name, target); err != nil {
			return nil, err
		}
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", url)

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, operator.Errorf("ValueError", "failed to create request: %s", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, operator.Errorf("ConnectionError", "failed to execute request: %s", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, operator.Errorf("ConnectionError", "failed to read response body: %s", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(bodyBytes)),
	}), nil
}
