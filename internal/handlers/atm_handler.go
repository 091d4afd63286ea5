package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/krungthon/corebank/internal/audit"
	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// ATMHandler drives provisioned cash machines over HTTP. A successful card
// insert opens a Redis session; cash operations quote the session token.
type ATMHandler struct {
	bank      *registry.Bank
	sessions  *services.SessionStore
	receipts  *services.ReceiptService
	archive   *services.ArchiveService
	audit     *audit.Logger
	validator *services.ValidationHelper
}

func NewATMHandler(bank *registry.Bank, sessions *services.SessionStore, receipts *services.ReceiptService, archive *services.ArchiveService, auditLog *audit.Logger) *ATMHandler {
	return &ATMHandler{
		bank:      bank,
		sessions:  sessions,
		receipts:  receipts,
		archive:   archive,
		audit:     auditLog,
		validator: services.NewValidationHelper(),
	}
}

// resolve finds the machine and, via the session token, the savings account
// it is currently serving.
func (h *ATMHandler) resolve(r *http.Request, token string) (*channel.ATM, ledger.Account, error) {
	atm, ok := h.bank.FindATM(chi.URLParam(r, "atmID"))
	if !ok {
		return nil, nil, channel.ErrInvalidCredential
	}
	sess, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		return nil, nil, err
	}
	if sess.ChannelID != atm.ID() {
		return nil, nil, services.ErrSessionNotFound
	}
	acct, ok := h.bank.FindAccountByNumber(sess.AccountNumber)
	if !ok {
		return nil, nil, channel.ErrInvalidCredential
	}
	return atm, acct, nil
}

// InsertCard authenticates a card at the machine
// @Summary Insert card
// @Description Verify the card PIN and open an ATM session for its savings account
// @Tags atm
// @Accept json
// @Produce json
// @Param atmID path string true "Machine id"
// @Param request body object{card_number=string,pin=string} true "Card insert request"
// @Success 200 {object} object{token=string,account_number=string,balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /atm/{atmID}/insert-card [post]
func (h *ATMHandler) InsertCard(w http.ResponseWriter, r *http.Request) {
	atm, ok := h.bank.FindATM(chi.URLParam(r, "atmID"))
	if !ok {
		services.SendErrorResponse(w, "Unknown machine", http.StatusNotFound, nil)
		return
	}

	var req struct {
		CardNumber string `json:"card_number" validate:"required"`
		PIN        string `json:"pin" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	c, ok := h.bank.FindCardByNumber(req.CardNumber)
	if !ok {
		h.audit.LogRejection("ATM_INSERT", atm.ID(), "", channel.ErrInvalidCredential)
		services.SendErrorResponse(w, channel.ErrInvalidCredential.Error(), http.StatusUnauthorized, nil)
		return
	}

	acct, err := atm.InsertCard(c, req.PIN)
	if err != nil {
		h.audit.LogRejection("ATM_INSERT", atm.ID(), c.AccountNumber(), err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	sess, err := h.sessions.Open(r.Context(), atm.ID(), c.Number(), acct.Number())
	if err != nil {
		services.SendErrorResponse(w, "Failed to open session", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ATM] Session opened on %s for account %s", atm.ID(), acct.Number())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":          sess.Token,
		"account_number": acct.Number(),
		"balance":        acct.Balance().String(),
	})
}

// Deposit puts cash into the machine
// @Summary ATM deposit
// @Description Deposit cash into the session's account
// @Tags atm
// @Accept json
// @Produce json
// @Param atmID path string true "Machine id"
// @Param request body object{token=string,amount=string} true "Deposit request"
// @Success 200 {object} object{balance=string,receipt=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /atm/{atmID}/deposit [post]
func (h *ATMHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.cashOp(w, r, "ATM_DEPOSIT", func(atm *channel.ATM, acct ledger.Account, amount decimal.Decimal) error {
		return atm.Deposit(acct, amount)
	})
}

// Withdraw takes cash out of the machine
// @Summary ATM withdrawal
// @Description Withdraw cash from the session's account, subject to the per-transaction cap and the machine float
// @Tags atm
// @Accept json
// @Produce json
// @Param atmID path string true "Machine id"
// @Param request body object{token=string,amount=string} true "Withdrawal request"
// @Success 200 {object} object{balance=string,receipt=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /atm/{atmID}/withdraw [post]
func (h *ATMHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.cashOp(w, r, "ATM_WITHDRAW", func(atm *channel.ATM, acct ledger.Account, amount decimal.Decimal) error {
		return atm.Withdraw(acct, amount)
	})
}

func (h *ATMHandler) cashOp(w http.ResponseWriter, r *http.Request, eventType string, op func(*channel.ATM, ledger.Account, decimal.Decimal) error) {
	var req struct {
		Token  string `json:"token" validate:"required"`
		Amount string `json:"amount" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	atm, acct, err := h.resolve(r, req.Token)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	if err := op(atm, acct, amount); err != nil {
		h.audit.LogRejection(eventType, atm.ID(), acct.Number(), err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	tx, _ := acct.LastTransaction()
	h.audit.LogOperation(eventType, atm.ID(), acct.Number(), amount.String())
	if err := h.archive.Record(r.Context(), acct.Number(), tx); err != nil {
		log.Printf("[ATM] Journal write failed for %s: %v", acct.Number(), err)
	}

	receipt, err := h.receipts.Issue(r.Context(), atm.ID(), tx)
	if err != nil {
		log.Printf("[ATM] Receipt issue failed for %s: %v", acct.Number(), err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"balance":     acct.Balance().String(),
		"transaction": tx.String(),
		"receipt":     receipt.Reference,
	})
}

// Transfer moves funds between accounts from the machine
// @Summary ATM transfer
// @Description Transfer from the session's account to another account
// @Tags atm
// @Accept json
// @Produce json
// @Param atmID path string true "Machine id"
// @Param request body object{token=string,to_account=string,amount=string} true "Transfer request"
// @Success 200 {object} object{balance=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /atm/{atmID}/transfer [post]
func (h *ATMHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string `json:"token" validate:"required"`
		ToAccount string `json:"to_account" validate:"required"`
		Amount    string `json:"amount" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	atm, acct, err := h.resolve(r, req.Token)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	target, ok := h.bank.FindAccountByNumber(req.ToAccount)
	if !ok {
		services.SendErrorResponse(w, "Unknown target account", http.StatusNotFound, nil)
		return
	}

	if err := atm.Transfer(acct, target, amount); err != nil {
		h.audit.LogRejection("ATM_TRANSFER", atm.ID(), acct.Number(), err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	srcTx, _ := acct.LastTransaction()
	dstTx, _ := target.LastTransaction()
	h.audit.LogTransfer(atm.ID(), acct.Number(), target.Number(), amount.String())
	if err := h.archive.RecordPair(r.Context(), acct.Number(), srcTx, target.Number(), dstTx); err != nil {
		log.Printf("[ATM] Journal write failed for transfer %s -> %s: %v", acct.Number(), target.Number(), err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"balance":     acct.Balance().String(),
		"transaction": srcTx.String(),
	})
}

// EjectCard closes the session
// @Summary Eject card
// @Description End the ATM session and return the card
// @Tags atm
// @Accept json
// @Produce json
// @Param atmID path string true "Machine id"
// @Param request body object{token=string} true "Eject request"
// @Success 200 {object} map[string]string
// @Router /atm/{atmID}/eject [post]
func (h *ATMHandler) EjectCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := h.sessions.Close(r.Context(), req.Token); err != nil {
		log.Printf("[ATM] Session close failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Card ejected"})
}
