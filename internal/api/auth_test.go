package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var testAuth = config.APIAuthConfig{
	Enabled:   true,
	JWTSecret: "test-secret",
	Audience:  "servicehub",
	Issuer:    "identity",
}

func TestAuthenticatorParse(t *testing.T) {
	auth := NewAuthenticator(testAuth)

	token, err := IssueToken(testAuth, "provider-1", models.RoleProvider, "ravi@example.com", time.Hour)
	require.NoError(t, err)

	sess, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "provider-1", sess.AccountID)
	assert.Equal(t, models.RoleProvider, sess.Role)
	assert.Equal(t, "ravi@example.com", sess.Email)

	t.Run("Expired", func(t *testing.T) {
		token, err := IssueToken(testAuth, "provider-1", models.RoleProvider, "", -time.Minute)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := testAuth
		other.JWTSecret = "other"
		token, err := IssueToken(other, "provider-1", models.RoleProvider, "", time.Hour)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		other := testAuth
		other.Audience = "elsewhere"
		token, err := IssueToken(other, "provider-1", models.RoleProvider, "", time.Hour)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		token, err := IssueToken(testAuth, "admin-1", models.Role("admin"), "", time.Hour)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		claims := Claims{Role: "customer", RegisteredClaims: jwt.RegisteredClaims{Subject: "c-1"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})
}

func TestAuthenticateRequest(t *testing.T) {
	auth := NewAuthenticator(testAuth)
	token, err := IssueToken(testAuth, "customer-1", models.RoleCustomer, "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	_, err = auth.Authenticate(req)
	assert.ErrorIs(t, err, errMissingToken)

	req.Header.Set("Authorization", "Basic abc")
	_, err = auth.Authenticate(req)
	assert.ErrorIs(t, err, errMissingToken)

	req.Header.Set("Authorization", "Bearer "+token)
	sess, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "customer-1", sess.AccountID)

	stream := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/stream?access_token="+token, nil)
	sess, err = auth.Authenticate(stream)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, sess.Role)
}

func TestAuthenticateDevHeaders(t *testing.T) {
	auth := NewAuthenticator(config.APIAuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(headerAccountID, "provider-9")
	req.Header.Set(headerAccountRole, "Provider")
	sess, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "provider-9", sess.AccountID)
	assert.True(t, sess.IsProvider())

	req.Header.Del(headerAccountID)
	_, err = auth.Authenticate(req)
	assert.Error(t, err)
}

func TestRateLimitInterceptor(t *testing.T) {
	interceptor := RateLimitUnaryInterceptor(newRateLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 1}))
	handler := func(context.Context, any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}})
	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// another port on the same host shares the bucket
	other := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4001}})
	_, err = interceptor(other, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	unlimited := RateLimitUnaryInterceptor(newRateLimiter(config.APIRateLimitConfig{}))
	for i := 0; i < 10; i++ {
		_, err := unlimited(ctx, nil, info, handler)
		require.NoError(t, err)
	}
}

func TestChainUnaryInterceptors(t *testing.T) {
	var order []string
	mk := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}
	chained := ChainUnaryInterceptors(mk("first"), mk("second"), LoggingUnaryInterceptor(nil))
	_, err := chained(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(context.Context, any) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
