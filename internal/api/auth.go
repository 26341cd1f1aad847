package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerAccountID   = "X-Account-Id"
	headerAccountRole = "X-Account-Role"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// Claims are issued by the identity provider. Sub is the account id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator turns a request into a session.
// With auth disabled the session comes from the X-Account-Id and X-Account-Role headers.
type Authenticator struct {
	cfg    config.APIAuthConfig
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(cfg config.APIAuthConfig) *Authenticator {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

func (a *Authenticator) Authenticate(r *http.Request) (session.Session, error) {
	if !a.cfg.Enabled {
		return session.New(r.Header.Get(headerAccountID), models.Role(strings.ToLower(r.Header.Get(headerAccountRole))))
	}

	raw, ok := bearerToken(r)
	if !ok {
		return session.Session{}, errMissingToken
	}
	return a.Parse(raw)
}

// Parse verifies a signed token and builds a session from its claims.
func (a *Authenticator) Parse(raw string) (session.Session, error) {
	var claims Claims
	tok, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !tok.Valid {
		return session.Session{}, errInvalidToken
	}

	sess, err := session.New(claims.Subject, models.Role(claims.Role))
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	sess.Email = claims.Email
	return sess, nil
}

// IssueToken signs a token the way the identity provider does. Used by tests and local tooling.
func IssueToken(cfg config.APIAuthConfig, accountID string, role models.Role, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  string(role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		// EventSource cannot set headers.
		if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
			return t, true
		}
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
