package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib"
	"github.com/fiffu/stockwatch/lib/backend"
	"github.com/fiffu/stockwatch/lib/geo"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/fiffu/stockwatch/lib/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, codec *session.Codec, reg *prometheus.Registry, transport http.RoundTripper) (*http.Server, error) {
	handler, err := router(cfg, log, svc, codec, reg, transport)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("HTTP server stopped", "err", err)
				}
			}()
			log.Sugar().Infof("Listening on %s", addr)
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv, nil
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service, codec *session.Codec, reg *prometheus.Registry, transport http.RoundTripper) (http.Handler, error) {
	ctrl := &controller{log, svc, codec}

	instrument, err := newRequestMetrics(reg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(ctrl.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(instrument)
	r.Use(codec.Middleware)

	r.Get("/health", ctrl.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/checks", ctrl.createCheck)
	r.Delete("/checks/{id}", ctrl.deleteCheck)
	r.Get("/subscriptions", ctrl.listSubscriptions)
	r.Get("/pincode", ctrl.resolvePincode)
	r.Get("/products/preview", ctrl.previewProduct)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", ctrl.currentSession)
		r.Post("/signout", ctrl.signOut)

		if cfg.SignInEnabled() {
			newSignIn(cfg, log, svc, codec, transport).mount(r)
		} else {
			log.Sugar().Info("Sign-in routes are disabled since no Google credentials are defined")
		}
	})

	return r, nil
}

type controller struct {
	log   *zap.Logger
	svc   *lib.Service
	codec *session.Codec
}

func (ctrl *controller) reject(w http.ResponseWriter, err error) {
	e := lib.AsError(err)
	if e.Kind == lib.KindInternal || e.Kind == lib.KindConfiguration {
		ctrl.log.Sugar().Errorw("Request failed", "kind", e.Kind.String(), "err", e.Err)
	}
	ctrl.resolve(w, e.Status, models.ErrorResponse{Error: e.Message})
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.log.Sugar().Errorw("Failed to encode response", "err", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// relay writes a backend response exactly as it was received.
func (ctrl *controller) relay(w http.ResponseWriter, res *backend.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}

func (ctrl *controller) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				ctrl.log.Sugar().Errorw("Recovered from panic", "panic", rvr, "request_id", middleware.GetReqID(r.Context()))
				ctrl.resolve(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (ctrl *controller) health(w http.ResponseWriter, r *http.Request) {
	res, err := ctrl.svc.Health(r.Context())
	if err != nil {
		e := lib.AsError(err)
		if e.Kind == lib.KindConfiguration {
			ctrl.log.Sugar().Errorw("Health check failed", "err", e.Err)
		}
		ctrl.resolve(w, e.Status, models.HealthResponse{Status: "error", Message: e.Message})
		return
	}
	ctrl.relay(w, res)
}

func (ctrl *controller) createCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		// Still let the service decide 401/500 first; an unreadable body
		// just looks like an invalid one.
		body = nil
	}

	res, err := ctrl.svc.CreateCheck(r.Context(), body)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.relay(w, res)
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	res, err := ctrl.svc.ListSubscriptions(r.Context())
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.relay(w, res)
}

func (ctrl *controller) deleteCheck(w http.ResponseWriter, r *http.Request) {
	res, err := ctrl.svc.DeleteCheck(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.relay(w, res)
}

func (ctrl *controller) resolvePincode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pos := geo.Position{
		Latitude:  parseFloat(q.Get("lat")),
		Longitude: parseFloat(q.Get("lon")),
	}
	if acc := q.Get("accuracy"); acc != "" {
		pos.Accuracy = parseFloat(acc)
	}

	code, err := ctrl.svc.ResolvePincode(r.Context(), pos)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, PincodeView{Pincode: code})
}

func (ctrl *controller) previewProduct(w http.ResponseWriter, r *http.Request) {
	preview, err := ctrl.svc.PreviewProduct(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, preview)
}

func (ctrl *controller) currentSession(w http.ResponseWriter, r *http.Request) {
	claims, err := ctrl.codec.FromRequest(r)
	if err != nil {
		ctrl.reject(w, &lib.Error{Kind: lib.KindUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized"})
		return
	}
	ctrl.resolve(w, http.StatusOK, SessionView{}.From(claims))
}

func (ctrl *controller) signOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, ctrl.codec.ExpiredCookie())
	ctrl.resolve(w, http.StatusOK, MessageView{Message: "Signed out"})
}

// parseFloat returns NaN for unparseable input so that range validation
// rejects it.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
