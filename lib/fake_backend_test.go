package lib

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/backend"
	"github.com/fiffu/stockwatch/lib/geo"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/fiffu/stockwatch/lib/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "backend-token"

// fakeBackend is a minimal in-memory stand-in for the monitoring backend.
type fakeBackend struct {
	t *testing.T

	mu     sync.Mutex
	calls  int
	nextID int64
	subs   map[int64]models.Subscription
	last   models.CheckRequest
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{t: t, nextID: 41, subs: map[int64]models.Subscription{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) Calls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls++

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "bad token"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})

	case r.Method == http.MethodPost && r.URL.Path == "/checks":
		var req models.CheckRequest
		assert.NoError(fb.t, json.NewDecoder(r.Body).Decode(&req))
		fb.last = req
		fb.nextID++
		fb.subs[fb.nextID] = models.Subscription{
			ID:              fb.nextID,
			ProductID:       1,
			Email:           req.Email,
			PhoneNumber:     req.PhoneNumber,
			Status:          models.StatusActive,
			URL:             req.ProductURL,
			DeliveryPincode: req.DeliveryPincode,
			IntervalMinutes: int(req.IntervalMinutes),
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok", "productId": 1, "subscriptionId": fb.nextID, "email": req.Email,
		})

	case r.Method == http.MethodGet && r.URL.Path == "/subscriptions":
		email := r.URL.Query().Get("email")
		subs := models.Subscriptions{}
		for id := int64(0); id <= fb.nextID; id++ {
			if sub, ok := fb.subs[id]; ok && sub.Email == email {
				subs = append(subs, sub)
			}
		}
		writeJSON(w, http.StatusOK, models.SubscriptionsResponse{Email: email, Subscriptions: subs})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/checks/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/checks/"), 10, 64)
		sub, ok := fb.subs[id]
		if !ok || sub.Status == models.StatusDeleted {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Subscription not found"})
			return
		}
		sub.Status = models.StatusDeleted
		fb.subs[id] = sub
		writeJSON(w, http.StatusOK, map[string]any{"message": "Subscription deleted"})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testConfig(backendURL, token string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend.URL = backendURL
	cfg.Backend.BearerToken = token
	cfg.Session.Secret = "test"
	cfg.Session.TTLHours = 1
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, resolver *geo.Resolver) *Service {
	t.Helper()
	client, err := backend.NewClient(nil, zap.NewNop(), http.DefaultTransport, prometheus.NewRegistry())
	require.NoError(t, err)
	if resolver == nil {
		resolver = geo.NewResolver(zap.NewNop(), nil, nil, geo.DefaultPositionOptions)
	}
	return NewService(nil, cfg, zap.NewNop(), nil, client, resolver, http.DefaultTransport)
}

func signedIn(email string) context.Context {
	return session.WithClaims(context.Background(), &session.Claims{Email: email})
}
