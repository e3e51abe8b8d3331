package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDeliveryBearerToken(t *testing.T) {
	key := []byte("signing-key")

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := fastRegistry(RegistryConfig{
		Auth: AuthConfig{
			Enabled:    true,
			SigningKey: key,
			Issuer:     "dispatch-test",
			TTL:        time.Minute,
		},
	})
	hook := registerTestHook(t, registry, server.URL)

	result := registry.Deliver(context.Background(), hook.ID, registry.NewEvent("task.completed", nil))
	if !result.Success {
		t.Fatalf("Deliver() failed: %v", result.Error)
	}

	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("Authorization = %q, want Bearer prefix", gotAuth)
	}

	token, err := jwt.Parse(strings.TrimPrefix(gotAuth, "Bearer "), func(token *jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		t.Fatalf("token parse: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not MapClaims")
	}
	if iss, _ := claims["iss"].(string); iss != "dispatch-test" {
		t.Errorf("iss = %q, want %q", iss, "dispatch-test")
	}
	if sub, _ := claims["sub"].(string); sub != hook.ID {
		t.Errorf("sub = %q, want webhook id %q", sub, hook.ID)
	}
	if _, ok := claims["exp"].(float64); !ok {
		t.Error("exp claim missing")
	}
	if _, ok := claims["iat"].(float64); !ok {
		t.Error("iat claim missing")
	}
}

func TestNoBearerTokenWhenAuthDisabled(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := fastRegistry(RegistryConfig{})
	hook := registerTestHook(t, registry, server.URL)

	registry.Deliver(context.Background(), hook.ID, registry.NewEvent("task.completed", nil))
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestMintSubjectOverride(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	minter := newTokenMinter(AuthConfig{
		SigningKey: []byte("k"),
		Subject:    "dispatch-service",
		TTL:        time.Minute,
	}, func() time.Time { return fixed })

	signed, err := minter.Mint("hook-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return []byte("k"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("token parse: %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(string); sub != "dispatch-service" {
		t.Errorf("sub = %q, want %q", sub, "dispatch-service")
	}
	if exp, _ := claims["exp"].(float64); int64(exp) != fixed.Add(time.Minute).Unix() {
		t.Errorf("exp = %v, want %v", int64(exp), fixed.Add(time.Minute).Unix())
	}
}
