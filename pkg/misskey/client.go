package misskey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/logger"
)

// ErrorType classifies API request failures
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// APIError represents a Misskey API error
type APIError struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("misskey %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Client is a Misskey API client for a single instance. API calls carry the
// access token in the request body, per the Misskey convention.
type Client struct {
	httpClient  *http.Client
	mediaClient *http.Client
	headers     map[string]string
	instance    string
	token       string
	me          *Account
	logger      logger.Logger
}

// NewClient creates a client for the given instance host. apiTimeout bounds
// whole API calls; connectTimeout/readTimeout apply to media fetches only,
// where connection setup is expected to be fast and body reads slow.
func NewClient(instance, token string, apiTimeout, connectTimeout, readTimeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		mediaClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
		headers: map[string]string{
			"User-Agent":   "mkcrawler/1.0",
			"Content-Type": "application/json",
		},
		instance: instance,
		token:    token,
		logger:   log,
	}
}

// Instance returns the instance host this client talks to
func (c *Client) Instance() string {
	return c.instance
}

// SetHeader sets a custom header for API requests
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// postJSON performs one API POST and decodes the JSON response into out
func (c *Client) postJSON(ctx context.Context, endpoint string, params map[string]any, out any) error {
	body := map[string]any{"i": c.token}
	for k, v := range params {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &APIError{Type: ErrorTypeParsing, Message: fmt.Sprintf("encode request: %v", err)}
	}

	url := fmt.Sprintf("https://%s%s", c.instance, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &APIError{Type: ErrorTypeUnknown, Message: err.Error()}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending API request", map[string]interface{}{
		"endpoint": endpoint,
		"instance": c.instance,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return &APIError{Type: ErrorTypeNetwork, Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Type: ErrorTypeParsing, Message: fmt.Sprintf("decode response: %v", err)}
	}

	return nil
}

// FetchMedia retrieves one media payload from object storage. Non-2xx
// statuses and transport failures come back as DownloadError.
func (c *Client) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &apperrors.DownloadError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.headers["User-Agent"])

	resp, err := c.mediaClient.Do(req)
	if err != nil {
		return nil, &apperrors.DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.DownloadError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.DownloadError{URL: url, Err: err}
	}

	return data, nil
}

func classifyStatus(code int, endpoint string) *APIError {
	var errType ErrorType
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		errType = ErrorTypeAuth
	case code == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case code >= 500:
		errType = ErrorTypeServerError
	default:
		errType = ErrorTypeUnknown
	}
	return &APIError{
		Type:    errType,
		Message: fmt.Sprintf("unexpected status from %s", endpoint),
		Code:    code,
	}
}
