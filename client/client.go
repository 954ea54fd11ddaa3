// Package client calls the stockwatch HTTP API on behalf of a signed-in user.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/tidwall/gjson"
)

const DefaultCookieName = "stockwatch_session"

// Error is the only error type returned by Client. StatusCode is zero when
// no response was received.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	BaseURL    string
	Session    string
	CookieName string
	Transport  http.RoundTripper
}

func New(baseURL, session string, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{strings.TrimRight(baseURL, "/"), session, DefaultCookieName, transport}
}

func (c *Client) CreateCheck(ctx context.Context, check models.NewCheck) (*models.CheckResponse, error) {
	var out models.CheckResponse
	err := c.do(ctx, c.url("/checks").Method(http.MethodPost).BodyJSON(check), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSubscriptions(ctx context.Context) (*models.SubscriptionsResponse, error) {
	var out models.SubscriptionsResponse
	if err := c.do(ctx, c.url("/subscriptions"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCheck(ctx context.Context, id int64) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	path := "/checks/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, c.url(path).Method(http.MethodDelete), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	if err := c.do(ctx, c.url("/health"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolvePincode(ctx context.Context, lat, lon, accuracy float64) (string, error) {
	var out struct {
		Pincode string `json:"pincode"`
	}
	b := c.url("/pincode").
		Param("lat", strconv.FormatFloat(lat, 'f', -1, 64)).
		Param("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if accuracy > 0 {
		b = b.Param("accuracy", strconv.FormatFloat(accuracy, 'f', -1, 64))
	}
	if err := c.do(ctx, b, &out); err != nil {
		return "", err
	}
	return out.Pincode, nil
}

func (c *Client) PreviewProduct(ctx context.Context, productURL string) (*models.ProductPreview, error) {
	var out models.ProductPreview
	if err := c.do(ctx, c.url("/products/preview").Param("url", productURL), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) url(path string) *requests.Builder {
	b := requests.
		URL(c.BaseURL+path).
		Transport(c.Transport).
		Accept("application/json").
		ContentType("application/json")
	if c.Session != "" {
		b = b.Cookie(c.CookieName, c.Session)
	}
	return b
}

func (c *Client) do(ctx context.Context, b *requests.Builder, out any) error {
	var (
		status int
		body   []byte
	)
	err := b.
		AddValidator(func(*http.Response) error { return nil }).
		Handle(func(res *http.Response) (err error) {
			status = res.StatusCode
			body, err = io.ReadAll(res.Body)
			return err
		}).
		Fetch(ctx)
	if err != nil {
		return &Error{status, fmt.Sprintf("API request failed: %v", err), err}
	}

	if status < 200 || status > 299 {
		return &Error{StatusCode: status, Message: errorMessage(status, body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{status, "API request failed: malformed response", err}
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}
	return fmt.Sprintf("API request failed: %d %s", status, http.StatusText(status))
}
