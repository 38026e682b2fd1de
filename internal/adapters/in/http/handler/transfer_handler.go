// internal/adapters/in/http/handler/transfer_handler.go
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fableforge/internal/adapters/in/http/middleware"
	"fableforge/internal/application/usecase"
)

// TransferHandler exposes the two-step token-guarded transfer.
type TransferHandler struct {
	Transfer *usecase.TransferUsecase
}

func NewTransferHandler(t *usecase.TransferUsecase) *TransferHandler {
	return &TransferHandler{Transfer: t}
}

// Prepare handles POST /transfer/prepare.
func (h *TransferHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	wallet, ok := middleware.WalletFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no wallet bound to identity"})
		return
	}

	var req struct {
		AssetID   string `json:"assetId"`
		Recipient string `json:"recipient"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.AssetID) == "" || strings.TrimSpace(req.Recipient) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assetId and recipient are required"})
		return
	}

	prepared, err := h.Transfer.PrepareTransfer(r.Context(), req.AssetID, wallet, req.Recipient)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

// Asset handles GET /assets/{assetID}: the on-ledger record as the DAS
// index sees it. 404 までは「まだインデックス未反映」を含む。
func (h *TransferHandler) Asset(w http.ResponseWriter, r *http.Request) {
	assetID := strings.TrimSpace(chi.URLParam(r, "assetID"))
	if assetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assetID is required"})
		return
	}

	asset, err := h.Transfer.AssetStatus(r.Context(), assetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if asset == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "asset not indexed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assetId":    asset.ID,
		"owner":      asset.Owner,
		"frozen":     asset.Frozen,
		"burnt":      asset.Burnt,
		"compressed": asset.Compressed,
	})
}

// Confirm handles POST /transfer/confirm.
func (h *TransferHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"transferToken"`
		SignedTxB64 string `json:"signedTx"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.SignedTxB64) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transferToken and signedTx are required"})
		return
	}

	sig, err := h.Transfer.ConfirmTransfer(r.Context(), req.Token, req.SignedTxB64)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signature": sig})
}
