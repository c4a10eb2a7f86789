package rancher

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/secure"
)

// ClientConfig holds the settings for a control plane API client.
type ClientConfig struct {
	Endpoint           string // Base API URL, e.g. https://rancher.example.com/v1/projects/1a5
	AccessKey          string
	SecretKey          string
	Timeout            time.Duration // Per-request timeout (default: 30s)
	CACert             string        // Path to a custom CA certificate
	InsecureSkipVerify bool
}

// Client talks to a Rancher-style control plane over its REST API.
// Authentication is basic auth with an API key pair; the secret key is held
// in protected memory and only decrypted per request.
type Client struct {
	httpClient *http.Client
	endpoint   string
	accessKey  string
	secretKey  *secure.SecureBuffer
}

// NewClient creates a control plane API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, uperrors.ConfigError{
			Field:      "endpoint",
			Message:    "control plane endpoint is required",
			Suggestion: "Set 'endpoint' in upshift.yaml to the project API URL",
		}
	}
	if cfg.AccessKey == "" {
		return nil, uperrors.ConfigError{
			Field:      "accessKey",
			Message:    "control plane access key is required",
			Suggestion: "Set 'accessKey' in upshift.yaml or store credentials with 'upshift login'",
		}
	}
	if cfg.SecretKey == "" {
		return nil, uperrors.ConfigError{
			Field:      "secretKey",
			Message:    "control plane secret key is required",
			Suggestion: "Set 'secretKey' in upshift.yaml or store credentials with 'upshift login'",
		}
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{},
	}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		transport.TLSClientConfig.RootCAs = caCertPool
	}

	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	secretKey, err := secure.NewSecureBufferFromString(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to protect secret key: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		accessKey: cfg.AccessKey,
		secretKey: secretKey,
	}, nil
}

// Close wipes the protected credential material.
func (c *Client) Close() {
	c.secretKey.Destroy()
}

// Endpoint returns the configured base API URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FindService resolves a service name to its current descriptor. It issues
// exactly one query and fails with NotFoundError when nothing matches. If the
// name is ambiguous the first match wins.
func (c *Client) FindService(ctx context.Context, name string) (*Service, error) {
	query := url.Values{}
	query.Set("name", name)

	var collection serviceCollection
	if err := c.get(ctx, c.endpoint+"/services", query, &collection); err != nil {
		return nil, err
	}

	if len(collection.Data) == 0 {
		return nil, uperrors.NotFoundError{Resource: "service", Name: name}
	}

	svc := collection.Data[0]
	return &svc, nil
}

// UpgradeService invokes the service's upgrade action with the given rollout
// strategy and returns the updated descriptor.
func (c *Client) UpgradeService(ctx context.Context, svc *Service, strategy InServiceStrategy) (*Service, error) {
	actionURL, ok := svc.Action(ActionUpgrade)
	if !ok {
		return nil, uperrors.PreconditionError{Service: svc.Name, State: svc.State}
	}

	var updated Service
	if err := c.post(ctx, actionURL, upgradeBody{InServiceStrategy: strategy}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// FinishUpgrade invokes the service's finishupgrade action with an empty
// body, committing the upgrade and retiring the old instances.
func (c *Client) FinishUpgrade(ctx context.Context, svc *Service) error {
	actionURL, ok := svc.Action(ActionFinishUpgrade)
	if !ok {
		return uperrors.PreconditionError{Service: svc.Name, State: svc.State}
	}
	return c.post(ctx, actionURL, nil, nil)
}

// Ping probes the base endpoint, verifying reachability and credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, c.endpoint, nil, nil)
}

// get issues an authenticated GET. Query parameters serialize as a query
// string; the response body is decoded into out when out is non-nil.
func (c *Client) get(ctx context.Context, rawURL string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &uperrors.TransportError{Op: "get", URL: rawURL, Err: err}
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	return c.do(req, "get", out)
}

// post issues an authenticated POST with a JSON body. Action URLs returned by
// the control plane are absolute and bypass the configured base endpoint.
func (c *Client) post(ctx context.Context, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, reader)
	if err != nil {
		return &uperrors.TransportError{Op: "post", URL: rawURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "post", out)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	if err := c.setAuth(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &uperrors.TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &uperrors.TransportError{
			Op:         op,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(bodyBytes)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &uperrors.TransportError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

func (c *Client) setAuth(req *http.Request) error {
	return c.secretKey.WithBytes(func(secret []byte) error {
		req.SetBasicAuth(c.accessKey, string(secret))
		return nil
	})
}
