package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrMalformedResponse = errors.New("backend returned malformed JSON")

// Response is a backend reply, kept raw so that it can be relayed verbatim.
type Response struct {
	Status int
	Body   json.RawMessage
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// ErrorMessage returns the backend's "error" field if it is a non-empty string.
func (r *Response) ErrorMessage() string {
	v := gjson.GetBytes(r.Body, "error")
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

type Client struct {
	log       *zap.Logger
	transport http.RoundTripper
	metrics   *metrics
}

func NewClient(lc fx.Lifecycle, log *zap.Logger, transport http.RoundTripper, reg prometheus.Registerer) (*Client, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Client{log, transport, m}, nil
}

func (c *Client) CreateCheck(ctx context.Context, cred config.Credential, req models.CheckRequest) (*Response, error) {
	b := requests.URL(cred.BaseURL + "/checks").
		Post().
		BodyJSON(req)
	return c.do(ctx, "create_check", cred, b)
}

func (c *Client) ListSubscriptions(ctx context.Context, cred config.Credential, email string) (*Response, error) {
	b := requests.URL(cred.BaseURL+"/subscriptions").
		Param("email", email)
	return c.do(ctx, "list_subscriptions", cred, b)
}

func (c *Client) DeleteCheck(ctx context.Context, cred config.Credential, id int64) (*Response, error) {
	b := requests.URL(cred.BaseURL + "/checks/" + strconv.FormatInt(id, 10)).
		Delete()
	return c.do(ctx, "delete_check", cred, b)
}

func (c *Client) Health(ctx context.Context, cred config.Credential) (*Response, error) {
	return c.do(ctx, "health", cred, requests.URL(cred.BaseURL+"/health"))
}

func (c *Client) do(ctx context.Context, op string, cred config.Credential, b *requests.Builder) (*Response, error) {
	start := time.Now()
	res := &Response{}
	err := b.
		Transport(c.transport).
		Bearer(cred.Bearer()).
		Accept("application/json").
		AddValidator(func(*http.Response) error { return nil }). // every status is relayed
		Handle(func(hr *http.Response) error {
			res.Status = hr.StatusCode
			body, err := io.ReadAll(hr.Body)
			if err != nil {
				return err
			}
			if !json.Valid(body) {
				return fmt.Errorf("%w (status %d)", ErrMalformedResponse, hr.StatusCode)
			}
			res.Body = body
			return nil
		}).
		Fetch(ctx)

	c.metrics.observe(op, res.Status, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", op, err)
	}
	c.log.Sugar().Debugw("Backend call completed", "op", op, "status", res.Status)
	return res, nil
}
