package session

import (
	"context"
	"errors"
	"strings"

	"servicehub/internal/models"
)

var ErrNoSession = errors.New("no session")

// Session identifies the caller of a service operation.
type Session struct {
	AccountID string
	Role      models.Role
	Email     string
}

// New validates and builds a session.
func New(accountID string, role models.Role) (Session, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Session{}, errors.New("session: account id is required")
	}
	if !role.Valid() {
		return Session{}, errors.New("session: unknown role " + string(role))
	}
	return Session{AccountID: accountID, Role: role}, nil
}

func (s Session) IsProvider() bool { return s.Role == models.RoleProvider }

func (s Session) IsCustomer() bool { return s.Role == models.RoleCustomer }

func (s Session) Valid() bool {
	return s.AccountID != "" && s.Role.Valid()
}

type ctxKey struct{}

// WithContext stores s in ctx. Only the transport layer uses this; services take the session explicitly.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}
