package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sheikh-saqib/banking-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/sheikh-saqib/banking-ledger-system/internal/notify"
	"github.com/sheikh-saqib/banking-ledger-system/internal/transfer"
	"github.com/shopspring/decimal"
)

// Handler maps the HTTP surface 1:1 onto the core contracts. It owns no
// business rules; every outcome, including the error kinds, comes from the
// ledger, the orchestrator or the dispatcher.
type Handler struct {
	ledger       *ledger.Ledger
	orchestrator *transfer.Orchestrator
	dispatcher   *notify.Dispatcher
}

func NewHandler(ldg *ledger.Ledger, orchestrator *transfer.Orchestrator, dispatcher *notify.Dispatcher) *Handler {
	return &Handler{ledger: ldg, orchestrator: orchestrator, dispatcher: dispatcher}
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind           models.AccountKind `json:"kind"`
		InitialDeposit decimal.Decimal    `json:"initial_deposit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), CallerIdentity(r.Context()), req.Kind, req.InitialDeposit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), chi.URLParam(r, "id"), CallerIdentity(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal      `json:"amount"`
		Kind   models.OperationKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	accountID := chi.URLParam(r, "id")
	caller := CallerIdentity(r.Context())

	var balance decimal.Decimal
	var err error
	switch req.Kind {
	case models.OperationCredit:
		balance, err = h.ledger.Credit(r.Context(), accountID, caller, req.Amount, "")
	case models.OperationDebit:
		balance, err = h.ledger.Debit(r.Context(), accountID, caller, req.Amount, "")
	default:
		writeError(w, http.StatusBadRequest, "validation_error", "kind must be credit or debit")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{AccountID: accountID, Balance: balance})
}

func (h *Handler) AuditEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 100
	}

	entries, err := h.ledger.AuditEntries(r.Context(), chi.URLParam(r, "id"), CallerIdentity(r.Context()), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Entries []models.AuditEntry `json:"entries"`
		Limit   int                 `json:"limit"`
		Offset  int                 `json:"offset"`
	}{Entries: entries, Limit: limit, Offset: offset})
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceAccount      string          `json:"source_account"`
		DestinationAccount string          `json:"destination_account"`
		Amount             decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	record, err := h.orchestrator.Transfer(r.Context(),
		req.SourceAccount, req.DestinationAccount, req.Amount,
		CallerIdentity(r.Context()), r.Header.Get("Idempotency-Key"))
	if err != nil && record.Status == "" {
		writeDomainError(w, err)
		return
	}

	// A terminal record is a meaningful response even when the transfer
	// failed; the caller branches on status and failure_reason.
	status := http.StatusCreated
	switch {
	case errors.Is(err, models.ErrCompensationFailed):
		status = http.StatusInternalServerError
	case record.FailureReason == models.ReasonInvalidRequest:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, record)
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	record, err := h.orchestrator.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	task, err := h.dispatcher.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: code, Message: message})
}

// writeDomainError maps the ledger failure taxonomy onto distinct HTTP
// statuses. A denied caller gets the identical response regardless of
// account existence.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case models.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, models.ErrDenied):
		writeError(w, http.StatusForbidden, "denied", "access denied")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, models.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_funds", "insufficient funds")
	case errors.Is(err, models.ErrContention), errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, "contention", "account is busy, retry the request")
	case errors.Is(err, models.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "already exists")
	case errors.Is(err, models.ErrCompensationFailed):
		writeError(w, http.StatusInternalServerError, "compensation_failed", "transfer left inconsistent, operator notified")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
