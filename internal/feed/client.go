package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vatwatch/vatwatch/pkg/logger"
)

// Client is responsible for fetching the raw status feed text
type Client struct {
	httpClient *http.Client
	url        string
	logger     *logger.Logger
}

// NewClient creates a new feed client
func NewClient(url string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("feed-client"),
	}
}

// Fetch retrieves one raw feed payload. A transport error or non-200 response
// is returned as an error; classification into ReadFailed happens in the
// service layer.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	c.logger.Debug("Fetching feed data", logger.String("url", c.url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Successfully fetched feed data", logger.Int("bytes", len(body)))

	return string(body), nil
}
