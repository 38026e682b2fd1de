// internal/adapters/in/http/handler/soulbound_handler.go
package handler

import (
	"net/http"
	"strings"

	"fableforge/internal/adapters/in/http/middleware"
	"fableforge/internal/application/usecase"
)

// SoulboundHandler exposes the composed mint-and-freeze operation.
type SoulboundHandler struct {
	Soulbound *usecase.SoulboundUsecase
}

func NewSoulboundHandler(sb *usecase.SoulboundUsecase) *SoulboundHandler {
	return &SoulboundHandler{Soulbound: sb}
}

type soulboundMintRequest struct {
	ItemName    string `json:"itemName"`
	CampaignID  string `json:"campaignId,omitempty"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"imageUri,omitempty"`

	// Background=true なら 202 を返して切り離して実行する。結果は
	// mint log / soulbound レコードのポーリングで観測する。
	Background bool `json:"background,omitempty"`
}

// Mint handles POST /soulbound/mint.
func (h *SoulboundHandler) Mint(w http.ResponseWriter, r *http.Request) {
	avatarID, ok := middleware.AvatarIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	wallet, ok := middleware.WalletFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no wallet bound to identity"})
		return
	}

	var req soulboundMintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.ItemName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "itemName is required"})
		return
	}

	in := usecase.SoulboundMintInput{
		AvatarID:    avatarID,
		OwnerWallet: wallet,
		ItemName:    req.ItemName,
		CampaignID:  req.CampaignID,
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		ImageURI:    req.ImageURI,
	}
	if in.Name == "" {
		in.Name = req.ItemName
	}

	if req.Background {
		h.Soulbound.MintAndFreezeSoulboundAsync(r.Context(), in)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	res, err := h.Soulbound.MintAndFreezeSoulbound(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Exists handles GET /soulbound/exists?itemName=...&campaignId=....
func (h *SoulboundHandler) Exists(w http.ResponseWriter, r *http.Request) {
	avatarID, ok := middleware.AvatarIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	itemName := strings.TrimSpace(r.URL.Query().Get("itemName"))
	if itemName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "itemName is required"})
		return
	}
	campaignID := strings.TrimSpace(r.URL.Query().Get("campaignId"))

	exists, item, err := h.Soulbound.CheckSoulboundExists(r.Context(), avatarID, itemName, campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"exists": exists}
	if item != nil {
		resp["item"] = item
	}
	writeJSON(w, http.StatusOK, resp)
}
