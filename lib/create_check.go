package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/fiffu/stockwatch/lib/backend"
	"github.com/fiffu/stockwatch/lib/models"
)

const msgInvalidInterval = "Invalid check interval. Must be 1hr, 6hr, 12hr, or 24hr"

type newCheckBody struct {
	ProductURL      string          `json:"productUrl"`
	DeliveryPincode string          `json:"deliveryPincode"`
	PhoneNumber     string          `json:"phoneNumber"`
	IntervalMinutes json.RawMessage `json:"intervalMinutes"`
}

// CreateCheck registers a subscription for the session's user. Any email in
// the body is ignored.
func (p *proxy) CreateCheck(ctx context.Context, body []byte) (*backend.Response, error) {
	email, cred, err := p.authorize(ctx)
	if err != nil {
		return nil, err
	}

	check, err := parseNewCheck(body)
	if err != nil {
		return nil, err
	}

	req := models.CheckRequest{
		ProductURL:      check.ProductURL,
		DeliveryPincode: check.DeliveryPincode,
		PhoneNumber:     check.PhoneNumber,
		IntervalMinutes: check.IntervalMinutes,
		Email:           email,
	}
	res, err := p.backend.CreateCheck(ctx, cred, req)
	res, err = p.relay(res, err, "Failed to create subscription")
	if err == nil {
		p.log.Sugar().Infow("Created check", "email", email, "interval", req.IntervalMinutes.String())
	}
	return res, err
}

func parseNewCheck(body []byte) (*models.NewCheck, error) {
	var in newCheckBody
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&in); err != nil {
		return nil, validation("Invalid request body")
	}

	check := &models.NewCheck{
		ProductURL:      strings.TrimSpace(in.ProductURL),
		DeliveryPincode: strings.TrimSpace(in.DeliveryPincode),
		PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
	}
	if check.ProductURL == "" || check.DeliveryPincode == "" || check.PhoneNumber == "" {
		return nil, validation("Missing required fields")
	}

	interval, ok := parseInterval(in.IntervalMinutes)
	if !ok {
		return nil, validation(msgInvalidInterval)
	}
	check.IntervalMinutes = interval
	return check, nil
}

// parseInterval accepts only a JSON number that is one of the allowed
// intervals. Strings such as "360" are rejected.
func parseInterval(raw json.RawMessage) (models.Interval, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	i := models.Interval(f)
	return i, i.Valid()
}
