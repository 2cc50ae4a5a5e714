package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "http://localhost:3001"

// APIError is a failed backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type ClientOpts struct {
	BaseURL     string
	Credentials CredentialProvider
	Timeout     time.Duration
}

// Client talks to the marketplace backend REST API.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	creds      CredentialProvider
}

var _ Backend = (*Client)(nil)

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL, creds: opts.Credentials}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	if c.creds == nil {
		c.creds = BearerToken{}
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		c.httpClient.SetTimeout(opts.Timeout)
	}

	return &c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) req(ctx context.Context) (*resty.Request, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetAuthToken(token), nil
}

// do executes a request and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, method, path string, configure func(*resty.Request), out any) error {
	request, err := c.req(ctx)
	if err != nil {
		return err
	}
	if configure != nil {
		configure(request)
	}

	env := &envelope{}
	request.SetResult(env).SetError(env)

	start := time.Now()
	res, err := handleError(request.Execute(method, path))
	if res != nil {
		log.Debug().Str("method", method).Str("path", path).Int("status", res.StatusCode()).Dur("took", time.Since(start)).Msg("backend request")
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Status: res.StatusCode(), Message: messageOr(env.Message, "request was not successful")}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

// handleError turns failing responses (>399 status code) into an APIError.
// Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, fmt.Errorf("backend request failed: %w", err)
	}
	if res.IsError() {
		msg := ""
		if env, ok := res.Error().(*envelope); ok && env != nil {
			msg = env.Message
		}
		return res, &APIError{Status: res.StatusCode(), Message: messageOr(msg, http.StatusText(res.StatusCode()))}
	}
	return res, nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &cats)
	return cats, err
}

func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var item Item
	err := c.do(ctx, http.MethodGet, "/api/items/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	var item Item
	err := c.do(ctx, http.MethodPost, "/api/items", func(r *resty.Request) {
		setItemForm(r, in)
	}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error) {
	var item Item
	err := c.do(ctx, http.MethodPut, "/api/items/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
		setItemForm(r, in)
	}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	}, nil)
}

func (c *Client) ListPartnerRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	var requests []Request
	err := c.do(ctx, http.MethodGet, "/api/requests/partner", func(r *resty.Request) {
		if filter.Type != "" {
			r.SetQueryParam("type", filter.Type)
		}
		if filter.Search != "" {
			r.SetQueryParam("search", filter.Search)
		}
	}, &requests)
	return requests, err
}

// UpdateRequestStatus changes a request's status. The backend requires a
// non-empty rejection reason, so a blank one is sent as a single space.
func (c *Client) UpdateRequestStatus(ctx context.Context, id string, update StatusUpdate) (*Request, error) {
	if update.Status == StatusRejected && update.RejectionReason == "" {
		update.RejectionReason = " "
	}
	var req Request
	err := c.do(ctx, http.MethodPut, "/api/requests/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id).
			SetHeader("Content-Type", "application/json").
			SetBody(update)
	}, &req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Dashboard returns the partner dashboard summary as-is.
func (c *Client) Dashboard(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/users/dashboard", nil, &raw)
	return raw, err
}

func setItemForm(r *resty.Request, in ItemInput) {
	fields := map[string]string{
		"type":           in.Type,
		"name":           in.Name,
		"category_id":    in.CategoryID,
		"condition":      in.Condition,
		"size":           in.Size,
		"color":          in.Color,
		"total_quantity": strconv.Itoa(in.TotalQuantity),
		"description":    in.Description,
	}
	if in.Type == TypeRental {
		fields["price"] = strconv.FormatFloat(in.Price, 'f', -1, 64)
	}
	r.SetMultipartFormData(fields)
	for _, img := range in.Images {
		r.SetMultipartField("images", img.Name, img.ContentType, bytes.NewReader(img.Data))
	}
}
