package service

import (
	"errors"
	"strings"
	"testing"

	"servicehub/internal/domain"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEnsureAccount(t *testing.T) {
	f := newFixture(t)
	sess := f.customer
	sess.Email = "asha@example.com"

	acc, err := f.accounts.EnsureAccount(f.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, acc.ID)
	assert.Equal(t, models.RoleCustomer, acc.Role)
	assert.Equal(t, "asha@example.com", acc.Email)

	_, err = f.accounts.UpdateProfile(f.ctx, sess, ProfileUpdate{FullName: strPtr("Asha")})
	require.NoError(t, err)

	again, err := f.accounts.EnsureAccount(f.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "Asha", again.FullName)

	_, err = f.accounts.EnsureAccount(f.ctx, session.Session{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.EnsureAccount(f.ctx, f.provider)
	require.NoError(t, err)

	acc, err := f.accounts.UpdateProfile(f.ctx, f.provider, ProfileUpdate{
		FullName: strPtr("  Ravi Kumar "),
		Phone:    strPtr("+91 98765-43210"),
		City:     strPtr("Pune"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", acc.FullName)
	assert.Equal(t, "+91 98765-43210", acc.Phone)
	assert.Equal(t, "Pune", acc.City)

	acc, err = f.accounts.UpdateProfile(f.ctx, f.provider, ProfileUpdate{Bio: strPtr("20 years of experience")})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", acc.FullName)
	assert.Equal(t, "20 years of experience", acc.Bio)

	bad := []ProfileUpdate{
		{FullName: strPtr("   ")},
		{FullName: strPtr(strings.Repeat("n", 201))},
		{Phone: strPtr("12345")},
		{Phone: strPtr("call me")},
		{Bio: strPtr(strings.Repeat("b", models.MaxMessageLength+1))},
	}
	for _, upd := range bad {
		_, err := f.accounts.UpdateProfile(f.ctx, f.provider, upd)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	_, err = f.accounts.GetProfile(f.ctx, f.stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.Fail(errors.New("disk full"))

	_, err := f.accounts.EnsureAccount(f.ctx, f.customer)
	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
}
