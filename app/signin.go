package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/fiffu/stockwatch/lib/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookieName = "stockwatch_oauth_state"
	googleUserInfo  = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleUser struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// signIn implements the Google OAuth2 authorization code flow and issues a
// session cookie once the user's email is verified.
type signIn struct {
	log         *zap.Logger
	svc         *lib.Service
	codec       *session.Codec
	oauth       *oauth2.Config
	transport   http.RoundTripper
	userInfoURL string
}

func newSignIn(cfg *config.Config, log *zap.Logger, svc *lib.Service, codec *session.Codec, transport http.RoundTripper) *signIn {
	return &signIn{
		log:   log,
		svc:   svc,
		codec: codec,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.ServerDNS, "/") + "/auth/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		transport:   transport,
		userInfoURL: googleUserInfo,
	}
}

func (s *signIn) mount(r chi.Router) {
	r.Get("/signin", s.begin)
	r.Get("/callback", s.callback)
}

func (s *signIn) begin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.codec.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), http.StatusFound)
}

func (s *signIn) callback(w http.ResponseWriter, r *http.Request) {
	ctrl := &controller{s.log, s.svc, s.codec}

	ck, err := r.Cookie(stateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) != 1 {
		ctrl.resolve(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid sign-in state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth", MaxAge: -1})

	if msg := r.URL.Query().Get("error"); msg != "" {
		s.log.Sugar().Infow("Sign-in was declined", "reason", msg)
		ctrl.resolve(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	user, err := s.exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Sugar().Infow("Sign-in failed", "err", err)
		ctrl.resolve(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	if _, err := s.svc.RecordSignIn(r.Context(), user.Email, user.Name); err != nil {
		ctrl.reject(w, err)
		return
	}

	cookie, err := s.codec.Cookie(user.Email, user.Name)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *signIn) exchange(ctx context.Context, code string) (*googleUser, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: s.transport})
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var user googleUser
	err = requests.
		URL(s.userInfoURL).
		Transport(s.transport).
		Bearer(tok.AccessToken).
		ToJSON(&user).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if user.Email == "" || !user.EmailVerified {
		return nil, errors.New("google account has no verified email")
	}
	return &user, nil
}
