package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no session")

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookies with HMAC-SHA-256.
type Codec struct {
	CookieName string
	Secret     []byte
	TTL        time.Duration
	Secure     bool

	now func() time.Time
}

func NewCodec(cookieName string, secret []byte, ttl time.Duration, secure bool) *Codec {
	return &Codec{cookieName, secret, ttl, secure, time.Now}
}

func (c *Codec) Encode(email, name string) (string, time.Time, error) {
	if len(c.Secret) == 0 {
		return "", time.Time{}, errors.New("missing secret")
	}
	if email == "" {
		return "", time.Time{}, errors.New("missing email")
	}

	now := c.now().UTC()
	expiry := now.Add(c.TTL)
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing session: %w", err)
	}
	return tok, expiry, nil
}

func (c *Codec) Decode(tokString string) (*Claims, error) {
	if tokString == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.Secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !tok.Valid || strings.TrimSpace(claims.Email) == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

// Cookie builds the cookie that carries a freshly encoded session.
func (c *Codec) Cookie(email, name string) (*http.Cookie, error) {
	value, expiry, err := c.Encode(email, name)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (c *Codec) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest reads the session cookie. Any failure is reported as ErrNoSession.
func (c *Codec) FromRequest(r *http.Request) (*Claims, error) {
	ck, err := r.Cookie(c.CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return c.Decode(ck.Value)
}

type ctxKey struct{}

// Middleware attaches the session, when there is one, to the request
// context. It never rejects: each handler decides whether a session is
// required, so that 401 is reported before any other check.
func (c *Codec) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := c.FromRequest(r); err == nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// Email returns the session email or ErrNoSession.
func Email(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	if !ok || claims == nil || claims.Email == "" {
		return "", ErrNoSession
	}
	return claims.Email, nil
}
