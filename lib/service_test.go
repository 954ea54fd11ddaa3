package lib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fiffu/stockwatch/lib/geo"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validCheck = `{"productUrl":"https://shop.amul.com/x","deliveryPincode":"400001","phoneNumber":"+919999999999","intervalMinutes":360}`

func requireKind(t *testing.T, err error, kind ErrorKind, status int) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *Error, got %v", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, status, e.Status)
	return e
}

func TestCreateCheck_ForwardsWithSessionEmail(t *testing.T) {
	fb, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)

	body := `{"productUrl":"https://shop.amul.com/x","deliveryPincode":"400001","phoneNumber":"+919999999999","intervalMinutes":360,"email":"spoof@example.com"}`
	res, err := svc.CreateCheck(signedIn("user@example.com"), []byte(body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"message":"ok","productId":1,"subscriptionId":42,"email":"user@example.com"}`, string(res.Body))
	assert.Equal(t, "user@example.com", fb.last.Email)
	assert.Equal(t, models.Interval6h, fb.last.IntervalMinutes)
	assert.Equal(t, 1, fb.Calls())
}

func TestCreateCheck_InvalidInterval(t *testing.T) {
	fb, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)

	for _, interval := range []string{`0`, `30`, `61`, `359`, `1441`, `-60`, `360.5`, `"360"`, `null`, `true`, `[]`, `1e12`} {
		body := fmt.Sprintf(`{"productUrl":"u","deliveryPincode":"p","phoneNumber":"n","intervalMinutes":%s}`, interval)
		_, err := svc.CreateCheck(signedIn("user@example.com"), []byte(body))
		e := requireKind(t, err, KindValidation, http.StatusBadRequest)
		assert.Equal(t, msgInvalidInterval, e.Message, interval)
	}

	_, err := svc.CreateCheck(signedIn("user@example.com"), []byte(`{"productUrl":"u","deliveryPincode":"p","phoneNumber":"n"}`))
	requireKind(t, err, KindValidation, http.StatusBadRequest)
	assert.Equal(t, 0, fb.Calls())
}

func TestCreateCheck_MissingFields(t *testing.T) {
	fb, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)

	for _, body := range []string{
		`{"deliveryPincode":"400001","phoneNumber":"+91","intervalMinutes":360}`,
		`{"productUrl":"https://x","phoneNumber":"+91","intervalMinutes":360}`,
		`{"productUrl":"https://x","deliveryPincode":"400001","intervalMinutes":360}`,
		`{"productUrl":"  ","deliveryPincode":"400001","phoneNumber":"+91","intervalMinutes":360}`,
	} {
		_, err := svc.CreateCheck(signedIn("user@example.com"), []byte(body))
		e := requireKind(t, err, KindValidation, http.StatusBadRequest)
		assert.Equal(t, "Missing required fields", e.Message)
	}

	for _, body := range []string{``, `not json`, `{"productUrl":5}`} {
		_, err := svc.CreateCheck(signedIn("user@example.com"), []byte(body))
		requireKind(t, err, KindValidation, http.StatusBadRequest)
	}
	assert.Equal(t, 0, fb.Calls())
}

func TestUnauthorizedBeforeConfiguration(t *testing.T) {
	fb, srv := newFakeBackend(t)

	for name, svc := range map[string]*Service{
		"configured":   newTestService(t, testConfig(srv.URL, testToken), nil),
		"unconfigured": newTestService(t, testConfig("", ""), nil),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := svc.CreateCheck(ctx, []byte(validCheck))
			requireKind(t, err, KindUnauthorized, http.StatusUnauthorized)

			_, err = svc.ListSubscriptions(ctx)
			requireKind(t, err, KindUnauthorized, http.StatusUnauthorized)

			_, err = svc.DeleteCheck(ctx, "1")
			requireKind(t, err, KindUnauthorized, http.StatusUnauthorized)

			_, err = svc.ResolvePincode(ctx, geo.Position{})
			requireKind(t, err, KindUnauthorized, http.StatusUnauthorized)

			_, err = svc.PreviewProduct(ctx, "https://shop.amul.com/x")
			requireKind(t, err, KindUnauthorized, http.StatusUnauthorized)
		})
	}
	assert.Equal(t, 0, fb.Calls())
}

func TestFailsClosedWithoutConfiguration(t *testing.T) {
	fb, srv := newFakeBackend(t)

	for name, cfgURL := range map[string][2]string{
		"no url":    {"", testToken},
		"no token":  {srv.URL, ""},
		"malformed": {"not a url", testToken},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, testConfig(cfgURL[0], cfgURL[1]), nil)
			ctx := signedIn("user@example.com")

			_, err := svc.CreateCheck(ctx, []byte(validCheck))
			e := requireKind(t, err, KindConfiguration, http.StatusInternalServerError)
			assert.Equal(t, "Server configuration error", e.Message)

			_, err = svc.ListSubscriptions(ctx)
			requireKind(t, err, KindConfiguration, http.StatusInternalServerError)

			_, err = svc.DeleteCheck(ctx, "1")
			requireKind(t, err, KindConfiguration, http.StatusInternalServerError)

			_, err = svc.Health(context.Background())
			requireKind(t, err, KindConfiguration, http.StatusInternalServerError)
		})
	}
	assert.Equal(t, 0, fb.Calls())
}

func TestRoundTrip_CreateListDelete(t *testing.T) {
	fb, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)
	ctx := signedIn("user@example.com")

	res, err := svc.CreateCheck(ctx, []byte(validCheck))
	require.NoError(t, err)
	var created models.CheckResponse
	require.NoError(t, json.Unmarshal(res.Body, &created))

	_, err = svc.CreateCheck(signedIn("other@example.com"), []byte(validCheck))
	require.NoError(t, err)

	res, err = svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	var list models.SubscriptionsResponse
	require.NoError(t, json.Unmarshal(res.Body, &list))
	require.Len(t, list.Subscriptions, 1)

	sub := list.Subscriptions[0]
	assert.Equal(t, created.SubscriptionID, sub.ID)
	assert.Equal(t, "user@example.com", sub.Email)
	assert.Equal(t, "https://shop.amul.com/x", sub.URL)
	assert.Equal(t, "400001", sub.DeliveryPincode)
	assert.Equal(t, "+919999999999", sub.PhoneNumber)
	assert.Equal(t, 360, sub.IntervalMinutes)

	_, err = svc.DeleteCheck(ctx, fmt.Sprint(sub.ID))
	require.NoError(t, err)

	// The proxy does not filter; the deleted entry is only hidden by Visible.
	res, err = svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(res.Body, &list))
	require.Len(t, list.Subscriptions, 1)
	assert.Equal(t, models.StatusDeleted, list.Subscriptions[0].Status)
	assert.Empty(t, list.Subscriptions.Visible())

	_, err = svc.DeleteCheck(ctx, "999")
	e := requireKind(t, err, KindBackend, http.StatusNotFound)
	assert.Equal(t, "Subscription not found", e.Message)
	assert.Equal(t, 6, fb.Calls())
}

func TestDeleteCheck_InvalidID(t *testing.T) {
	fb, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)

	for _, id := range []string{"", "abc", "0", "-4", "1/../health", "1?x=y"} {
		_, err := svc.DeleteCheck(signedIn("user@example.com"), id)
		requireKind(t, err, KindValidation, http.StatusBadRequest)
	}
	assert.Equal(t, 0, fb.Calls())
}

func TestBackendFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    ErrorKind
		status  int
		message string
	}{
		{
			name: "error without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"detail": "down"})
			},
			kind: KindBackend, status: http.StatusServiceUnavailable, message: "Failed to fetch subscriptions",
		},
		{
			name: "error with message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusForbidden, map[string]any{"error": "Quota exceeded"})
			},
			kind: KindBackend, status: http.StatusForbidden, message: "Quota exceeded",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
			kind: KindInternal, status: http.StatusInternalServerError, message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			svc := newTestService(t, testConfig(srv.URL, testToken), nil)

			_, err := svc.ListSubscriptions(signedIn("user@example.com"))
			e := requireKind(t, err, tt.kind, tt.status)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestHealth(t *testing.T) {
	_, srv := newFakeBackend(t)
	svc := newTestService(t, testConfig(srv.URL, testToken), nil)
	res, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Body))

	svc = newTestService(t, testConfig(srv.URL, "wrong-token"), nil)
	_, err = svc.Health(context.Background())
	e := requireKind(t, err, KindBackend, http.StatusUnauthorized)
	assert.Equal(t, "Backend health check failed", e.Message)

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()
	svc = newTestService(t, testConfig(downURL, testToken), nil)
	_, err = svc.Health(context.Background())
	e = requireKind(t, err, KindInternal, http.StatusInternalServerError)
	assert.Equal(t, "Failed to connect to backend", e.Message)
}

type stubGeocoder struct {
	code string
	err  error
}

func (s stubGeocoder) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	return s.code, s.err
}

func TestResolvePincode(t *testing.T) {
	cfg := testConfig("", "")
	ctx := signedIn("user@example.com")

	resolver := geo.NewResolver(zap.NewNop(), stubGeocoder{code: "431136 "}, nil, geo.DefaultPositionOptions)
	svc := newTestService(t, cfg, resolver)
	code, err := svc.ResolvePincode(ctx, geo.Position{Latitude: 19.88, Longitude: 75.34})
	require.NoError(t, err)
	assert.Equal(t, "431136", code)

	_, err = svc.ResolvePincode(ctx, geo.Position{Latitude: 91})
	requireKind(t, err, KindValidation, http.StatusBadRequest)

	resolver = geo.NewResolver(zap.NewNop(), stubGeocoder{err: errors.New("boom")}, nil, geo.DefaultPositionOptions)
	svc = newTestService(t, cfg, resolver)
	_, err = svc.ResolvePincode(ctx, geo.Position{Latitude: 19.88, Longitude: 75.34})
	e := requireKind(t, err, KindUnprocessable, http.StatusUnprocessableEntity)
	assert.Contains(t, e.Message, "manually")
}

func TestAsError(t *testing.T) {
	e := AsError(errors.New("boom"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "Internal server error", e.Message)

	orig := validation("bad")
	assert.Same(t, orig, AsError(fmt.Errorf("wrapped: %w", orig)))
}
