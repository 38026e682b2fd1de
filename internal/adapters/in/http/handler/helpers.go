// internal/adapters/in/http/handler/helpers.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fableforge/internal/application/usecase"
	logdom "fableforge/internal/domain/mintlog"
	sbdom "fableforge/internal/domain/soulbound"
	transferdom "fableforge/internal/domain/transfer"
	wldom "fableforge/internal/domain/whitelist"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps the issuance error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wldom.ErrNotWhitelisted):
		return http.StatusForbidden
	case errors.Is(err, wldom.ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, logdom.ErrSupplyExhausted):
		return http.StatusConflict
	case errors.Is(err, logdom.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, logdom.ErrNotFound),
		errors.Is(err, sbdom.ErrNotFound),
		errors.Is(err, wldom.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transferdom.ErrTokenInvalid):
		return http.StatusGone
	case errors.Is(err, transferdom.ErrNotTransferable):
		return http.StatusConflict
	case errors.Is(err, transferdom.ErrOwnerMismatch):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrIndexingTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, usecase.ErrChainExecution):
		return http.StatusBadGateway
	case errors.Is(err, wldom.ErrInvalidAvatarID),
		errors.Is(err, sbdom.ErrInvalidItemName),
		errors.Is(err, transferdom.ErrInvalidAssetID),
		errors.Is(err, transferdom.ErrInvalidOwner),
		errors.Is(err, transferdom.ErrInvalidRecipient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
