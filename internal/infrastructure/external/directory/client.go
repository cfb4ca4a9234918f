package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"go.uber.org/zap"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds directory service configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a REST adapter for the org directory service. It implements
// port.Directory.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a new directory client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UserExists reports whether the user id is known to the directory
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// GetUser returns the directory record, or nil if the user is unknown
func (c *Client) GetUser(ctx context.Context, userID string) (*port.DirectoryUser, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Directory request failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Directory returned unexpected status",
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var user port.DirectoryUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	return &user, nil
}

// Verify interface compliance
var _ port.Directory = (*Client)(nil)
