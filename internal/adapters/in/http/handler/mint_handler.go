// internal/adapters/in/http/handler/mint_handler.go
package handler

import (
	"net/http"
	"strings"

	"fableforge/internal/adapters/in/http/middleware"
	"fableforge/internal/application/usecase"
)

// MintHandler exposes the server-paid mint, the two-phase user-paid mint, and
// the eligibility check.
type MintHandler struct {
	Mint     *usecase.MintUsecase
	UserMint *usecase.UserMintUsecase
}

func NewMintHandler(mint *usecase.MintUsecase, userMint *usecase.UserMintUsecase) *MintHandler {
	return &MintHandler{Mint: mint, UserMint: userMint}
}

type mintRequest struct {
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Description          string `json:"description,omitempty"`
	ImageURI             string `json:"imageUri,omitempty"`
	SellerFeeBasisPoints uint16 `json:"sellerFeeBasisPoints,omitempty"`
	ItemKey              string `json:"itemKey,omitempty"`
	MaxSupply            int    `json:"maxSupply,omitempty"`
}

// Execute handles POST /mint (server pays the fee).
func (h *MintHandler) Execute(w http.ResponseWriter, r *http.Request) {
	in, ok := h.mintInputFromRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Mint.ExecuteMint(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Eligibility handles GET /mint/eligibility?itemKey=...&maxSupply=....
func (h *MintHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	avatarID, ok := middleware.AvatarIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	itemKey := strings.TrimSpace(r.URL.Query().Get("itemKey"))
	maxSupply := parseIntDefault(r.URL.Query().Get("maxSupply"), 0)

	el, err := h.Mint.CheckMintEligibility(r.Context(), avatarID, itemKey, maxSupply)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// Prepare handles POST /mint/prepare (user pays; returns the unsigned tx).
func (h *MintHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	in, ok := h.mintInputFromRequest(w, r)
	if !ok {
		return
	}

	prepared, err := h.UserMint.PrepareMintTransaction(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

// Confirm handles POST /mint/confirm with the counter-signed transaction.
func (h *MintHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	avatarID, ok := middleware.AvatarIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	var req struct {
		LogID       string `json:"logId"`
		SignedTxB64 string `json:"signedTx"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.LogID) == "" || strings.TrimSpace(req.SignedTxB64) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "logId and signedTx are required"})
		return
	}

	res, err := h.UserMint.ConfirmUserMint(r.Context(), req.LogID, avatarID, req.SignedTxB64)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// mintInputFromRequest merges the authenticated identity with the request
// body. Returns ok=false after writing the error response.
func (h *MintHandler) mintInputFromRequest(w http.ResponseWriter, r *http.Request) (usecase.MintInput, bool) {
	avatarID, ok := middleware.AvatarIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return usecase.MintInput{}, false
	}
	wallet, ok := middleware.WalletFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no wallet bound to identity"})
		return usecase.MintInput{}, false
	}

	var req mintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return usecase.MintInput{}, false
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return usecase.MintInput{}, false
	}

	return usecase.MintInput{
		AvatarID:             avatarID,
		OwnerWallet:          wallet,
		Name:                 req.Name,
		Symbol:               req.Symbol,
		Description:          req.Description,
		ImageURI:             req.ImageURI,
		SellerFeeBasisPoints: req.SellerFeeBasisPoints,
		ItemKey:              req.ItemKey,
		MaxSupply:            req.MaxSupply,
	}, true
}
