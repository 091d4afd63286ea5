package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krungthon/corebank/internal/audit"
	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// TellerHandler drives the counter channel and the administrative batch
// operations: savings interest, fixed-deposit maturity and annual card fees.
type TellerHandler struct {
	bank       *registry.Bank
	archive    *services.ArchiveService
	receipts   *services.ReceiptService
	statements *services.StatementService
	audit      *audit.Logger
	validator  *services.ValidationHelper
}

func NewTellerHandler(bank *registry.Bank, archive *services.ArchiveService, receipts *services.ReceiptService, statements *services.StatementService, auditLog *audit.Logger) *TellerHandler {
	return &TellerHandler{
		bank:       bank,
		archive:    archive,
		receipts:   receipts,
		statements: statements,
		audit:      auditLog,
		validator:  services.NewValidationHelper(),
	}
}

type counterRequest struct {
	AccountNumber string `json:"account_number" validate:"required"`
	CitizenID     string `json:"citizen_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	ToAccount     string `json:"to_account,omitempty"`
}

func (h *TellerHandler) decodeCounterRequest(w http.ResponseWriter, r *http.Request) (counterRequest, bool) {
	var req counterRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return req, false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return req, false
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return req, false
	}
	return req, true
}

// Deposit takes a counter deposit
// @Summary Counter deposit
// @Description Deposit into an account after teller identity verification
// @Tags teller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param branch path string true "Branch number"
// @Param request body counterRequest true "Deposit request"
// @Success 200 {object} object{balance=string,receipt=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /teller/counter/{branch}/deposit [post]
func (h *TellerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.counterOp(w, r, "COUNTER_DEPOSIT", func(c *channel.Counter, acct ledger.Account, req counterRequest, amount decimal.Decimal) error {
		return c.Deposit(acct, amount, req.AccountNumber, req.CitizenID)
	})
}

// Withdraw takes a counter withdrawal
// @Summary Counter withdrawal
// @Description Withdraw from an account after teller identity verification
// @Tags teller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param branch path string true "Branch number"
// @Param request body counterRequest true "Withdrawal request"
// @Success 200 {object} object{balance=string,receipt=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /teller/counter/{branch}/withdraw [post]
func (h *TellerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.counterOp(w, r, "COUNTER_WITHDRAW", func(c *channel.Counter, acct ledger.Account, req counterRequest, amount decimal.Decimal) error {
		return c.Withdraw(acct, amount, req.AccountNumber, req.CitizenID)
	})
}

func (h *TellerHandler) counterOp(w http.ResponseWriter, r *http.Request, eventType string, op func(*channel.Counter, ledger.Account, counterRequest, decimal.Decimal) error) {
	req, ok := h.decodeCounterRequest(w, r)
	if !ok {
		return
	}

	counter := channel.NewCounter(h.bank, chi.URLParam(r, "branch"))

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	acct, found := h.bank.FindAccountByNumber(req.AccountNumber)
	if !found {
		services.SendErrorResponse(w, channel.ErrIdentityMismatch.Error(), http.StatusUnauthorized, nil)
		return
	}

	if err := op(counter, acct, req, amount); err != nil {
		h.audit.LogRejection(eventType, counter.ID(), req.AccountNumber, err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	tx, _ := acct.LastTransaction()
	h.audit.LogOperation(eventType, counter.ID(), acct.Number(), amount.String())
	if err := h.archive.Record(r.Context(), acct.Number(), tx); err != nil {
		log.Printf("[TELLER] Journal write failed for %s: %v", acct.Number(), err)
	}

	receipt, err := h.receipts.Issue(r.Context(), counter.ID(), tx)
	if err != nil {
		log.Printf("[TELLER] Receipt issue failed for %s: %v", acct.Number(), err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"balance":     acct.Balance().String(),
		"transaction": tx.String(),
		"receipt":     receipt.Reference,
	})
}

// Transfer takes a counter transfer
// @Summary Counter transfer
// @Description Transfer between accounts after teller identity verification, with a pacs.008 export
// @Tags teller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param branch path string true "Branch number"
// @Param request body counterRequest true "Transfer request"
// @Success 200 {object} object{balance=string,transaction=string,pacs008=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /teller/counter/{branch}/transfer [post]
func (h *TellerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCounterRequest(w, r)
	if !ok {
		return
	}
	if req.ToAccount == "" {
		services.SendErrorResponse(w, "to_account is required", http.StatusBadRequest, nil)
		return
	}

	counter := channel.NewCounter(h.bank, chi.URLParam(r, "branch"))

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	acct, found := h.bank.FindAccountByNumber(req.AccountNumber)
	if !found {
		services.SendErrorResponse(w, channel.ErrIdentityMismatch.Error(), http.StatusUnauthorized, nil)
		return
	}
	target, found := h.bank.FindAccountByNumber(req.ToAccount)
	if !found {
		services.SendErrorResponse(w, "Unknown target account", http.StatusNotFound, nil)
		return
	}

	if err := counter.Transfer(acct, target, amount, req.AccountNumber, req.CitizenID); err != nil {
		h.audit.LogRejection("COUNTER_TRANSFER", counter.ID(), req.AccountNumber, err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	srcTx, _ := acct.LastTransaction()
	dstTx, _ := target.LastTransaction()
	h.audit.LogTransfer(counter.ID(), acct.Number(), target.Number(), amount.String())
	if err := h.archive.RecordPair(r.Context(), acct.Number(), srcTx, target.Number(), dstTx); err != nil {
		log.Printf("[TELLER] Journal write failed for transfer %s -> %s: %v", acct.Number(), target.Number(), err)
	}

	// Interbank statement export for the clearing interface.
	var pacsXML string
	doc, err := h.statements.CreatePacs008(services.StatementTransfer{
		Reference:   uuid.New().String(),
		FromAccount: acct.Number(),
		ToAccount:   target.Number(),
		Amount:      amount,
	})
	if err == nil {
		pacsXML, err = h.statements.ConvertToXML(doc)
	}
	if err != nil {
		log.Printf("[TELLER] pacs.008 export failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"balance":     acct.Balance().String(),
		"transaction": srcTx.String(),
		"pacs008":     pacsXML,
	})
}

// AccountStatement lists an account's transactions
// @Summary Account statement
// @Description List the canonical transaction lines of an account, oldest first
// @Tags teller
// @Produce json
// @Security BearerAuth
// @Param number path string true "Account number"
// @Success 200 {object} object{account_number=string,balance=string,transactions=[]string}
// @Failure 404 {object} services.ErrorResponse
// @Router /teller/accounts/{number}/statement [get]
func (h *TellerHandler) AccountStatement(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.bank.FindAccountByNumber(chi.URLParam(r, "number"))
	if !ok {
		services.SendErrorResponse(w, "Unknown account", http.StatusNotFound, nil)
		return
	}

	txs := acct.Transactions()
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, tx.String())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account_number": acct.Number(),
		"balance":        acct.Balance().String(),
		"transactions":   lines,
	})
}

// ApplySavingsInterest runs the savings interest batch
// @Summary Apply savings interest
// @Description Credit periodic interest to every savings account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{credited=int}
// @Router /admin/batch/savings-interest [post]
func (h *TellerHandler) ApplySavingsInterest(w http.ResponseWriter, r *http.Request) {
	credited := 0
	for _, u := range h.bank.Users() {
		for _, a := range u.Accounts() {
			sav, ok := a.(*ledger.SavingsAccount)
			if !ok {
				continue
			}
			interest, tx := sav.CalculateInterest()
			credited++
			h.audit.LogOperation("SAVINGS_INTEREST", ledger.SystemOrigin, sav.Number(), interest.String())
			if err := h.archive.Record(r.Context(), sav.Number(), tx); err != nil {
				log.Printf("[ADMIN] Journal write failed for %s: %v", sav.Number(), err)
			}
		}
	}

	log.Printf("[ADMIN] Savings interest batch credited %d accounts", credited)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"credited": credited})
}

// ApplyFixedMaturity settles a matured fixed deposit
// @Summary Apply fixed-deposit maturity interest
// @Description Credit maturity interest to a fixed account based on how long the deposit was held
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{account_number=string,deposited_at=string} true "Maturity request (deposited_at in RFC 3339)"
// @Success 200 {object} object{interest=string,balance=string,transaction=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/batch/fixed-maturity [post]
func (h *TellerHandler) ApplyFixedMaturity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"account_number" validate:"required"`
		DepositedAt   string `json:"deposited_at" validate:"required"`
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

	depositedAt, err := time.Parse(time.RFC3339, req.DepositedAt)
	if err != nil {
		services.SendErrorResponse(w, "Invalid deposited_at timestamp", http.StatusBadRequest, nil)
		return
	}

	acct, ok := h.bank.FindAccountByNumber(req.AccountNumber)
	if !ok {
		services.SendErrorResponse(w, "Unknown account", http.StatusNotFound, nil)
		return
	}
	fixed, ok := acct.(*ledger.FixedAccount)
	if !ok {
		services.SendErrorResponse(w, "Not a fixed account", http.StatusUnprocessableEntity, nil)
		return
	}

	interest, tx := fixed.ApplyMaturityInterest(depositedAt, time.Now())
	h.audit.LogOperation("FIXED_MATURITY", ledger.SystemOrigin, fixed.Number(), interest.String())
	if err := h.archive.Record(r.Context(), fixed.Number(), tx); err != nil {
		log.Printf("[ADMIN] Journal write failed for %s: %v", fixed.Number(), err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"interest":    interest.String(),
		"balance":     fixed.Balance().String(),
		"transaction": tx.String(),
	})
}

// ChargeAnnualFees runs the annual card fee batch
// @Summary Charge annual card fees
// @Description Charge the annual fee on every account with a bound card; cardless accounts are skipped
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{charged=int}
// @Router /admin/batch/annual-fees [post]
func (h *TellerHandler) ChargeAnnualFees(w http.ResponseWriter, r *http.Request) {
	charged := 0
	for _, u := range h.bank.Users() {
		for _, a := range u.Accounts() {
			tx, err := a.DeductAnnualFee()
			if err != nil || tx == nil {
				continue
			}
			charged++
			h.audit.LogOperation("ANNUAL_FEE", ledger.SystemOrigin, a.Number(), tx.Amount().String())
			if err := h.archive.Record(r.Context(), a.Number(), *tx); err != nil {
				log.Printf("[ADMIN] Journal write failed for %s: %v", a.Number(), err)
			}
		}
	}

	log.Printf("[ADMIN] Annual fee batch charged %d accounts", charged)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"charged": charged})
}

// GetReceipt fetches a stored receipt
// @Summary Fetch receipt
// @Description Fetch a previously issued QR receipt by its reference
// @Tags teller
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Receipt reference"
// @Success 200 {object} services.Receipt
// @Failure 404 {object} services.ErrorResponse
// @Router /teller/receipts/{reference} [get]
func (h *TellerHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.Retrieve(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(receipt)
}

// JournalHistory lists the archived journal of an account
// @Summary Journal history
// @Description List the durable journal rows for an account
// @Tags teller
// @Produce json
// @Security BearerAuth
// @Param number path string true "Account number"
// @Success 200 {array} services.JournalEntry
// @Router /teller/accounts/{number}/journal [get]
func (h *TellerHandler) JournalHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.archive.History(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		services.SendErrorResponse(w, "Failed to read journal", http.StatusInternalServerError, nil)
		return
	}
	if entries == nil {
		entries = []services.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
