package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/pkg/httputil"
	"github.com/wonhee/bracket/pkg/logger"
)

// HTTPClient talks to a remote bracket-order gateway over REST.
type HTTPClient struct {
	client  *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// NewHTTPClient creates a gateway client. baseURL is the API root, e.g.
// "http://gateway:8000/api".
func NewHTTPClient(client *httputil.Client, baseURL, apiKey string, log *logger.Logger) *HTTPClient {
	if apiKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &HTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  log,
	}
}

// Create persists a draft via POST /bracket-orders.
func (c *HTTPClient) Create(ctx context.Context, draft *contracts.BracketOrder) (*contracts.BracketOrder, error) {
	resp, err := c.client.PostJSON(ctx, c.baseURL+"/bracket-orders", draft)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	return decodeOrder(resp)
}

// List fetches orders via GET /bracket-orders[?symbol=].
func (c *HTTPClient) List(ctx context.Context, symbol string) ([]*contracts.BracketOrder, error) {
	endpoint := c.baseURL + "/bracket-orders"
	if symbol != "" {
		endpoint += "?symbol=" + url.QueryEscape(symbol)
	}

	resp, err := c.client.Get(ctx, endpoint)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var orders []*contracts.BracketOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}
	return orders, nil
}

// Update applies a partial mutation via PUT /bracket-orders/{id} and
// returns the server's full echo.
func (c *HTTPClient) Update(ctx context.Context, orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error) {
	endpoint := fmt.Sprintf("%s/bracket-orders/%s", c.baseURL, url.PathEscape(orderID))

	resp, err := c.client.PutJSON(ctx, endpoint, patch)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	return decodeOrder(resp)
}

// Cancel cancels the whole order via DELETE /bracket-orders/{id}.
func (c *HTTPClient) Cancel(ctx context.Context, orderID string) error {
	endpoint := fmt.Sprintf("%s/bracket-orders/%s", c.baseURL, url.PathEscape(orderID))

	resp, err := c.client.Delete(ctx, endpoint)
	if err != nil {
		return &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func decodeOrder(resp *http.Response) (*contracts.BracketOrder, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var order contracts.BracketOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: gateway returned %d", ErrConflict, resp.StatusCode)
	case httputil.IsRetryableError(resp.StatusCode):
		return &RetryableError{Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	default:
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
}
