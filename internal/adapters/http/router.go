package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/clearledger/clearledger/internal/application"
	"github.com/clearledger/clearledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Handler struct {
	service *application.LedgerService
}

func NewRouter(service *application.LedgerService) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()

	r.Get("/healthz", h.handleHealthz)

	r.Route("/api", func(api chi.Router) {
		api.Post("/accounts", h.handleCreateAccount)
		api.Get("/accounts", h.handleListAccounts)
		api.Get("/accounts/{id}", h.handleGetAccount)
		api.Patch("/accounts/{id}", h.handleUpdateAccount)
		api.Delete("/accounts/{id}", h.handleDeleteAccount)
		api.Get("/accounts/{id}/balance", h.handleGetBalance)
		api.Get("/accounts/{id}/suspicious-activity", h.handleSuspiciousActivity)

		api.Post("/transfers", h.handleTransfer)
		api.Get("/transactions", h.handleListTransactions)
		api.Get("/transactions/{id}", h.handleGetTransaction)
		api.Post("/transactions/{id}/reverse", h.handleReverseTransaction)

		api.Post("/stakes", h.handleCreateStake)
		api.Get("/stakes", h.handleListStakes)

		api.Post("/operations/apply-interest", h.handleApplyInterest)
		api.Post("/operations/distribute-rewards", h.handleDistributeRewards)

		api.Get("/audit/entries", h.handleListAuditEntries)
		api.Post("/audit/entries", h.handleLogAuditEntry)
		api.Get("/notifications", h.handleListNotifications)
		api.Post("/notifications", h.handleCreateNotification)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type createAccountRequest struct {
	HolderName     string `json:"holder_name" validate:"required"`
	InitialBalance int64  `json:"initial_balance" validate:"gte=0"`
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req.HolderName, req.InitialBalance)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type updateAccountRequest struct {
	HolderName string `json:"holder_name" validate:"required"`
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	account, err := h.service.UpdateAccountHolderName(r.Context(), id, req.HolderName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.GetAccountBalance(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
}

func (h *Handler) handleSuspiciousActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	flagged, err := h.service.CheckForSuspiciousActivity(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "flagged_transaction_ids": flagged})
}

type transferRequest struct {
	SenderID   uint64 `json:"sender_id" validate:"required"`
	ReceiverID uint64 `json:"receiver_id" validate:"required"`
	Amount     int64  `json:"amount" validate:"gt=0"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	txn, err := h.service.TransferFunds(r.Context(), req.SenderID, req.ReceiverID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.GetAllTransactions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *Handler) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reversal, err := h.service.ReverseTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reversal)
}

type createStakeRequest struct {
	AccountID     uint64 `json:"account_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"gt=0"`
	PeriodSeconds uint64 `json:"period_seconds" validate:"gt=0"`
}

func (h *Handler) handleCreateStake(w http.ResponseWriter, r *http.Request) {
	var req createStakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	stake, err := h.service.CreateStake(r.Context(), req.AccountID, req.Amount, req.PeriodSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stake)
}

func (h *Handler) handleListStakes(w http.ResponseWriter, r *http.Request) {
	stakes, err := h.service.ListStakes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stakes)
}

func (h *Handler) handleApplyInterest(w http.ResponseWriter, r *http.Request) {
	credited, err := h.service.ApplyInterestToAllAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts_credited": credited})
}

func (h *Handler) handleDistributeRewards(w http.ResponseWriter, r *http.Request) {
	settled, err := h.service.DistributeRewards(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settled_stake_ids": settled})
}

func (h *Handler) handleListAuditEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAuditEntries(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type logAuditEntryRequest struct {
	Action    string `json:"action" validate:"required"`
	AccountID uint64 `json:"account_id"`
	Details   string `json:"details" validate:"required"`
}

func (h *Handler) handleLogAuditEntry(w http.ResponseWriter, r *http.Request) {
	var req logAuditEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	entry, err := h.service.LogAuditEntry(r.Context(), domain.ActionType(req.Action), req.AccountID, req.Details)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.ListNotifications(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

type createNotificationRequest struct {
	AccountID uint64 `json:"account_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

func (h *Handler) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	note, err := h.service.CreateNotification(r.Context(), req.AccountID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeServiceError maps the ledger error taxonomy onto HTTP statuses:
// missing records are 404, funds shortfalls 409, state-rule violations 422.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
