// Package signing fetches signed read URLs from a SAS token signing service.
// The default endpoint is the Planetary Computer signing API.
package signing

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

// DefaultEndpoint is the Planetary Computer SAS signing API.
const DefaultEndpoint = "https://planetarycomputer.microsoft.com/api/sas/v1/sign"

const requestTimeout = 30 * time.Second

// Client signs hrefs against a signing endpoint.
type Client struct {
	endpoint string
	http     *resty.Client
}

type signResponse struct {
	Href   string `json:"href"`
	Expiry string `json:"msft:expiry"`
}

// New creates a signing client. An empty endpoint selects DefaultEndpoint.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     resty.New().SetTimeout(requestTimeout),
	}
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// Sign exchanges href for a signed URL that grants temporary read access.
func (c *Client) Sign(ctx context.Context, href string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("href", href).
		SetResult(&signResponse{}).
		Get(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("sign request for %q failed: %w", href, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("sign request for %q returned %s", href, res.Status())
	}

	signed, ok := res.Result().(*signResponse)
	if !ok || signed.Href == "" {
		return "", fmt.Errorf("signing service returned no href for %q", href)
	}
	return signed.Href, nil
}
