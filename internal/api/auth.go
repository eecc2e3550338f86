package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

var ErrBadCredentials = errors.New("api: invalid credentials")

type AuthOptions struct {
	Secret    string
	AdminUser string
	// AdminPass is a bcrypt hash.
	AdminPass string
	Now       func() time.Time
}

// Authenticator issues and checks HS256 bearer tokens. With no secret
// configured every request is let through and login is unavailable.
type Authenticator struct {
	secret    []byte
	adminUser string
	adminHash []byte
	now       func() time.Time
}

func NewAuthenticator(opts AuthOptions) *Authenticator {
	a := &Authenticator{
		secret:    []byte(opts.Secret),
		adminUser: opts.AdminUser,
		adminHash: []byte(opts.AdminPass),
		now:       opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// CheckPassword compares against the configured admin bcrypt hash.
func (a *Authenticator) CheckPassword(user, pass string) error {
	if user != a.adminUser || len(a.adminHash) == 0 {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(pass)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

func (a *Authenticator) IssueToken(user string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return "", ErrBadCredentials
	}
	return claims.Subject, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request) {
	if !a.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.CheckPassword(req.Username, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := a.IssueToken(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed issuing token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(tokenTTL / time.Second),
	})
}

// GET /api/auth/me
func (a *Authenticator) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"auth_enabled": a.Enabled(),
	})
}

type userKey struct{}

// UserFrom returns the authenticated user set by Middleware.
func UserFrom(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		bearer := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(bearer, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		user, err := a.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
