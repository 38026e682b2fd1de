package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAvatarIDFromCtxRoundTrip(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKeyAvatarID, "avatar-42")
	got, ok := AvatarIDFromCtx(ctx)
	if !ok || got != "avatar-42" {
		t.Fatalf("AvatarIDFromCtx = %q, %v, want %q, true", got, ok, "avatar-42")
	}

	if _, ok := AvatarIDFromCtx(context.Background()); ok {
		t.Fatal("AvatarIDFromCtx reported ok on empty context")
	}
}

func TestWalletFromCtxRoundTrip(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKeyWallet, "wallet-42")
	got, ok := WalletFromCtx(ctx)
	if !ok || got != "wallet-42" {
		t.Fatalf("WalletFromCtx = %q, %v, want %q, true", got, ok, "wallet-42")
	}

	if _, ok := WalletFromCtx(context.Background()); ok {
		t.Fatal("WalletFromCtx reported ok on empty context")
	}
}

func TestAuthMiddlewareNotInitialized(t *testing.T) {
	m := &AuthMiddleware{}
	h := m.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler reached without auth client")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mint", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
