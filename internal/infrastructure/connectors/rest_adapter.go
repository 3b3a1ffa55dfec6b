package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from a vendor API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrRESTMissingBaseURL indicates the connector config has no usable endpoint
var ErrRESTMissingBaseURL = errors.New("connectors: no base URL in connector config")

// RESTAdapter is a generic JSON-over-HTTP transport for vendors exposing
// collection endpoints of the form {base}/{resource}. Fetch expects either
// a bare JSON array or an envelope with a "records" key; Push POSTs one
// record per call.
type RESTAdapter struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewRESTAdapter builds a REST adapter from the connector's vendor
// descriptor and config. The "base_url" config key overrides the vendor's
// default endpoint.
func NewRESTAdapter(conn *connector.Connector) (syncdomain.Connector, error) {
	descriptor, err := conn.Descriptor()
	if err != nil {
		return nil, err
	}

	baseURL := conn.Config["base_url"]
	if baseURL == "" {
		baseURL = descriptor.DefaultEndpoint
	}
	if baseURL == "" || strings.Contains(baseURL, "{") {
		return nil, fmt.Errorf("%w: vendor %s", ErrRESTMissingBaseURL, conn.Vendor)
	}

	return &RESTAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeaderFor(descriptor.AuthType, conn.Config),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// authHeaderFor derives the Authorization header value from the vendor's
// auth type. OAuth2 vendors carry a pre-obtained token in config; token
// refresh is handled outside the adapter.
func authHeaderFor(authType connector.AuthType, config map[string]string) string {
	switch authType {
	case connector.AuthTypeAPIKey:
		if key := config["api_key"]; key != "" {
			return "Bearer " + key
		}
	case connector.AuthTypeOAuth2:
		if token := config["access_token"]; token != "" {
			return "Bearer " + token
		}
	}
	return ""
}

// Fetch retrieves the full dataset for a resource type
func (a *RESTAdapter) Fetch(ctx context.Context, resource connector.ResourceType) ([]mapping.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.resourceURL(resource), nil)
	if err != nil {
		return nil, fmt.Errorf("connectors: failed to build fetch request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connectors: fetch %s failed: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("connectors: failed to read fetch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("connectors: fetch %s returned status %d", resource, resp.StatusCode)
	}

	return decodeRecords(body)
}

// Push writes one mapped record to the vendor
func (a *RESTAdapter) Push(ctx context.Context, resource connector.ResourceType, record mapping.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("connectors: failed to encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.resourceURL(resource), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("connectors: failed to build push request: %w", err)
	}
	a.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connectors: push %s failed: %w", resource, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connectors: push %s returned status %d", resource, resp.StatusCode)
	}
	return nil
}

func (a *RESTAdapter) resourceURL(resource connector.ResourceType) string {
	return a.baseURL + "/" + resource.String()
}

func (a *RESTAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if a.authHeader != "" {
		req.Header.Set("Authorization", a.authHeader)
	}
}

// decodeRecords accepts either a bare JSON array or a {"records": [...]}
// envelope, the two shapes the supported vendor APIs return
func decodeRecords(body []byte) ([]mapping.Record, error) {
	var records []mapping.Record
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Records []mapping.Record `json:"records"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("connectors: failed to decode fetch response: %w", err)
	}
	return envelope.Records, nil
}

var _ syncdomain.Connector = (*RESTAdapter)(nil)
