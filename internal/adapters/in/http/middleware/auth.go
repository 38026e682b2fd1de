// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient は firebase auth クライアントのエイリアス。
// RouterDeps などからは *middleware.FirebaseAuthClient 型で受けられます。
type FirebaseAuthClient = fbauth.Client

// context key は string を使わず、衝突回避のため独自型を使用（SA1029 対策）
type ctxKey struct{ name string }

var (
	ctxKeyAvatarID = ctxKey{name: "avatarId"}
	ctxKeyWallet   = ctxKey{name: "wallet"}
)

// AuthMiddleware は
//
//   - Authorization: Bearer <ID_TOKEN>
//
// を検証し、avatarId(uid) と wallet クレームを context に詰めて次のハンドラへ渡す。
// コアは認証済みの (avatarId, wallet) を信頼する前提なので、ここより内側では
// 再検証しない。
type AuthMiddleware struct {
	FirebaseAuth *FirebaseAuthClient
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.FirebaseAuth == nil {
			http.Error(w, "auth middleware not initialized", http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "unauthorized: missing bearer token", http.StatusUnauthorized)
			return
		}

		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			http.Error(w, "unauthorized: empty bearer token", http.StatusUnauthorized)
			return
		}

		// Firebase ID トークン検証
		token, err := m.FirebaseAuth.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		avatarID := strings.TrimSpace(token.UID)
		if avatarID == "" {
			http.Error(w, "invalid uid in token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAvatarID, avatarID)

		// wallet クレームがあれば context に格納
		wallet := ""
		if raw, ok := token.Claims["wallet"]; ok {
			if s, ok2 := raw.(string); ok2 && strings.TrimSpace(s) != "" {
				wallet = strings.TrimSpace(s)
				ctx = context.WithValue(ctx, ctxKeyWallet, wallet)
			}
		}

		log.Printf("[AuthMiddleware] path=%s avatar=%s wallet=%s", r.URL.Path, avatarID, wallet)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AvatarIDFromCtx returns the authenticated avatar id, if any.
func AvatarIDFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyAvatarID).(string)
	return v, ok && v != ""
}

// WalletFromCtx returns the authenticated wallet address, if any.
func WalletFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyWallet).(string)
	return v, ok && v != ""
}
