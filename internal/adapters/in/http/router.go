// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fableforge/internal/adapters/in/http/handler"
	"fableforge/internal/adapters/in/http/middleware"
)

// RouterDeps collects the handlers and middleware injected from the DI
// container.
type RouterDeps struct {
	Auth *middleware.AuthMiddleware

	Mint      *handler.MintHandler
	Soulbound *handler.SoulboundHandler
	Transfer  *handler.TransferHandler

	// AllowedOrigin は CORS で許可するフロントのオリジン。空なら既定値。
	AllowedOrigin string
}

// NewRouter assembles the HTTP surface. チェーン順に注意:
// CORS は一番外(パニック時も preflight に応えるため Recover より外)。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORSWithOrigin(deps.AllowedOrigin))
	r.Use(middleware.Recover)

	// ヘルスチェックは認証の外
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Handler)

		r.Route("/mint", func(r chi.Router) {
			r.Post("/", deps.Mint.Execute)
			r.Get("/eligibility", deps.Mint.Eligibility)
			r.Post("/prepare", deps.Mint.Prepare)
			r.Post("/confirm", deps.Mint.Confirm)
		})

		r.Route("/soulbound", func(r chi.Router) {
			r.Post("/mint", deps.Soulbound.Mint)
			r.Get("/exists", deps.Soulbound.Exists)
		})

		r.Route("/transfer", func(r chi.Router) {
			r.Post("/prepare", deps.Transfer.Prepare)
			r.Post("/confirm", deps.Transfer.Confirm)
		})

		r.Get("/assets/{assetID}", deps.Transfer.Asset)
	})

	return r
}
