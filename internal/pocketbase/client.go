// PocketBase records API client
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        string = "http://127.0.0.1:8090"
	defaultAuthCollection string = "_superusers"
	defaultPerPage        int    = 200
)

// Options configures a [Client].
type Options struct {
	BaseURL           string
	AuthCollection    string
	Email             string
	Password          string
	RequestsPerSecond float64 // 0 disables throttling
	HTTPClient        *http.Client
}

// Client talks to a single PocketBase instance.
type Client struct {
	baseURL        string
	authCollection string
	email          string
	password       string
	token          string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// NewClient creates a PocketBase client. Empty options fall back to a local instance and
// [http.DefaultClient].
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.AuthCollection == "" {
		opts.AuthCollection = defaultAuthCollection
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		authCollection: opts.AuthCollection,
		email:          opts.Email,
		password:       opts.Password,
		httpClient:     opts.HTTPClient,
		limiter:        limiter,
	}
}

// BaseURL returns the instance address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticated reports whether the client holds an auth token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Authenticate exchanges the configured credentials for an auth token.
//
// Calls POST /api/collections/{authCollection}/auth-with-password.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return fmt.Errorf("%w: pocketbase email and password are required", shared.ErrMissingCredentials)
	}

	body := map[string]string{"identity": c.email, "password": c.password}
	var resp struct {
		Token string `json:"token"`
	}

	endpoint := fmt.Sprintf("/api/collections/%s/auth-with-password", url.PathEscape(c.authCollection))
	if err := c.send(ctx, http.MethodPost, endpoint, nil, body, &resp); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if resp.Token == "" {
		return fmt.Errorf("%w: empty token in auth response", shared.ErrAuthFailed)
	}

	c.token = resp.Token
	return nil
}

// Health checks that the instance is reachable.
//
// Calls GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

// FindByResourceID returns the record whose resourceId equals resourceID.
//
// An empty result wraps [shared.ErrRecordNotFound].
func (c *Client) FindByResourceID(ctx context.Context, collection, resourceID string) (models.Record, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "1")
	query.Set("skipTotal", "true")
	query.Set("filter", Eq("resourceId", resourceID))

	var page models.ListResult
	if err := c.do(ctx, http.MethodGet, recordsPath(collection), query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, collection, resourceID)
	}

	return page.Items[0], nil
}

// List returns one page of records ordered by creation time.
func (c *Client) List(ctx context.Context, collection string, page, perPage int) (*models.ListResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	query.Set("sort", "created")

	var result models.ListResult
	if err := c.do(ctx, http.MethodGet, recordsPath(collection), query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Count returns the total number of records in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "1")
	query.Set("skipTotal", "false")
	query.Set("fields", "id")

	var result models.ListResult
	if err := c.do(ctx, http.MethodGet, recordsPath(collection), query, nil, &result); err != nil {
		return 0, err
	}
	return result.TotalItems, nil
}

// Create inserts a new record.
func (c *Client) Create(ctx context.Context, collection string, data map[string]any) (models.Record, error) {
	var rec models.Record
	if err := c.do(ctx, http.MethodPost, recordsPath(collection), nil, data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update patches an existing record by its backend id.
func (c *Client) Update(ctx context.Context, collection, id string, data map[string]any) (models.Record, error) {
	var rec models.Record
	if err := c.do(ctx, http.MethodPatch, recordPath(collection, id), nil, data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record by its backend id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(collection, id), nil, nil, nil)
}

func recordsPath(collection string) string {
	return fmt.Sprintf("/api/collections/%s/records", url.PathEscape(collection))
}

func recordPath(collection, id string) string {
	return recordsPath(collection) + "/" + url.PathEscape(id)
}

// do authenticates on first use when credentials are configured, then sends the request.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if c.token == "" && c.email != "" && c.password != "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}
	return c.send(ctx, method, endpoint, query, body, result)
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
