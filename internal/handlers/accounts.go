package handlers

import (
	"net/http"

	"tabletennis/internal/money"
	"tabletennis/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "user_id")
	if !actor.Owns(userID) {
		respondError(w, http.StatusForbidden, "permission_denied")
		return
	}
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": money.Format(balance),
	})
}

// Amount accepts a JSON number or a decimal string.
type rechargeRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rechargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = actor.ID
	}
	amount, err := checkAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if validator.ValidatePaymentMethod(req.Method) != nil {
		respondError(w, http.StatusBadRequest, "invalid_payment_method")
		return
	}
	if err := h.ledger.Recharge(r.Context(), actor, req.UserID, amount, req.Method); err != nil {
		respondServiceError(w, r, err)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), req.UserID)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "balance": money.Format(balance)})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit, offset := page(query.Get("page"), query.Get("limit"), 20)
	rows, err := h.ledger.Transactions(r.Context(), actor, chi.URLParam(r, "user_id"), query.Get("type"), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := map[string]any{
			"id":          row.ID,
			"user_id":     row.UserID,
			"amount":      money.Format(row.Amount),
			"type":        row.Type,
			"description": row.Description,
			"created_at":  row.CreatedAt,
		}
		if row.RefID != nil {
			item["ref_id"] = *row.RefID
		}
		normalized = append(normalized, item)
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	check, err := h.ledger.SelfCheck(r.Context(), actor, chi.URLParam(r, "user_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":            check.UserID,
		"stored_balance":     money.Format(check.StoredBalance),
		"calculated_balance": money.Format(check.CalculatedBalance),
		"difference":         money.Format(check.Difference),
		"transaction_count":  check.TransactionCount,
		"consistent":         check.Difference.IsZero(),
	})
}

