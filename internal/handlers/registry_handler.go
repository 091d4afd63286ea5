package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/krungthon/corebank/internal/card"
	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// RegistryHandler provisions users, accounts, cards and channels.
type RegistryHandler struct {
	bank         *registry.Bank
	defaultFloat decimal.Decimal
	validator    *services.ValidationHelper
}

func NewRegistryHandler(bank *registry.Bank, defaultFloat decimal.Decimal) *RegistryHandler {
	return &RegistryHandler{
		bank:         bank,
		defaultFloat: defaultFloat,
		validator:    services.NewValidationHelper(),
	}
}

// CreateUser registers a bank customer
// @Summary Register user
// @Description Register a new customer by citizen ID
// @Tags registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{citizen_id=string,name=string} true "User registration request"
// @Success 201 {object} object{citizen_id=string,name=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /registry/users [post]
func (h *RegistryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CitizenID string `json:"citizen_id" validate:"required"`
		Name      string `json:"name" validate:"required"`
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

	user := ledger.NewUser(req.CitizenID, req.Name)
	if err := h.bank.RegisterUser(user); err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[REGISTRY] Registered user %s", req.CitizenID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"citizen_id": user.CitizenID(),
		"name":       user.Name(),
	})
}

// CreateAccount opens an account for a registered user
// @Summary Open account
// @Description Open a savings, fixed or current account for a registered customer
// @Tags registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{type=string,number=string,citizen_id=string,initial_deposit=string,term_months=int} true "Account request"
// @Success 201 {object} object{number=string,type=string,balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /registry/accounts [post]
func (h *RegistryHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type           string `json:"type" validate:"required,oneof=savings fixed current"`
		Number         string `json:"number" validate:"required"`
		CitizenID      string `json:"citizen_id" validate:"required"`
		InitialDeposit string `json:"initial_deposit,omitempty"`
		TermMonths     int    `json:"term_months,omitempty"`
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

	owner, ok := h.bank.FindUser(req.CitizenID)
	if !ok {
		services.SendErrorResponse(w, "Unknown citizen ID", http.StatusNotFound, nil)
		return
	}

	initial := decimal.Zero
	if req.InitialDeposit != "" {
		var err error
		if initial, err = decimal.NewFromString(req.InitialDeposit); err != nil || initial.IsNegative() {
			services.SendErrorResponse(w, "Invalid initial deposit", http.StatusBadRequest, nil)
			return
		}
	}

	var acct ledger.Account
	switch req.Type {
	case "savings":
		acct = ledger.NewSavingsAccount(req.Number, owner, initial)
	case "fixed":
		if !initial.IsZero() {
			services.SendErrorResponse(w, "Fixed accounts open empty; deposit at the counter", http.StatusBadRequest, nil)
			return
		}
		acct = ledger.NewFixedAccount(req.Number, owner, req.TermMonths)
	case "current":
		acct = ledger.NewCurrentAccount(req.Number, owner, initial)
	}

	if err := h.bank.RegisterAccount(acct); err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[REGISTRY] Opened %s account %s for %s", req.Type, req.Number, req.CitizenID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"number":  acct.Number(),
		"type":    req.Type,
		"balance": acct.Balance().String(),
	})
}

// IssueCard issues and binds a card to an account
// @Summary Issue card
// @Description Issue an ATM, debit, shopping or travel card against an account
// @Tags registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{type=string,number=string,account_number=string,pin=string} true "Card request"
// @Success 201 {object} object{number=string,type=string,annual_fee=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /registry/cards [post]
func (h *RegistryHandler) IssueCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type          string `json:"type" validate:"required,oneof=atm debit shopping travel"`
		Number        string `json:"number" validate:"required"`
		AccountNumber string `json:"account_number" validate:"required"`
		PIN           string `json:"pin" validate:"required,pin"`
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

	acct, ok := h.bank.FindAccountByNumber(req.AccountNumber)
	if !ok {
		services.SendErrorResponse(w, "Unknown account", http.StatusNotFound, nil)
		return
	}

	var c card.Card
	switch req.Type {
	case "atm":
		c = card.NewATMCard(req.Number, req.AccountNumber, req.PIN)
	case "debit":
		c = card.NewDebitCard(req.Number, req.AccountNumber, req.PIN)
	case "shopping":
		c = card.NewShoppingDebitCard(req.Number, req.AccountNumber, req.PIN)
	case "travel":
		c = card.NewTravelDebitCard(req.Number, req.AccountNumber, req.PIN)
	}

	if err := acct.BindCard(c); err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[REGISTRY] Issued %s card %s on account %s", req.Type, req.Number, req.AccountNumber)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"number":     c.Number(),
		"type":       req.Type,
		"annual_fee": c.AnnualFee().String(),
	})
}

// CreateATM provisions a cash machine
// @Summary Provision ATM
// @Description Provision an ATM with an opening cash float
// @Tags registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{machine_id=string,initial_float=string} true "ATM request"
// @Success 201 {object} object{machine_id=string,cash_balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /registry/atms [post]
func (h *RegistryHandler) CreateATM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MachineID    string `json:"machine_id" validate:"required"`
		InitialFloat string `json:"initial_float,omitempty"`
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

	initialFloat := h.defaultFloat
	if req.InitialFloat != "" {
		var err error
		if initialFloat, err = decimal.NewFromString(req.InitialFloat); err != nil || initialFloat.IsNegative() {
			services.SendErrorResponse(w, "Invalid initial float", http.StatusBadRequest, nil)
			return
		}
	}

	atm := channel.NewATM(h.bank, req.MachineID, initialFloat)
	if err := h.bank.RegisterATM(atm); err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[REGISTRY] Provisioned ATM %s with float %s", req.MachineID, initialFloat)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"machine_id":   atm.ID(),
		"cash_balance": atm.CashBalance().String(),
	})
}

// CreateEDC provisions a merchant terminal
// @Summary Provision EDC terminal
// @Description Provision an EDC terminal settling into a merchant account
// @Tags registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{terminal_id=string,merchant_account=string} true "EDC request"
// @Success 201 {object} object{terminal_id=string,merchant_account=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /registry/edcs [post]
func (h *RegistryHandler) CreateEDC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerminalID      string `json:"terminal_id" validate:"required"`
		MerchantAccount string `json:"merchant_account" validate:"required"`
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

	merchant, ok := h.bank.FindAccountByNumber(req.MerchantAccount)
	if !ok {
		services.SendErrorResponse(w, "Unknown merchant account", http.StatusNotFound, nil)
		return
	}

	term := channel.NewEDC(h.bank, req.TerminalID, merchant)
	if err := h.bank.RegisterEDC(term); err != nil {
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[REGISTRY] Provisioned EDC %s settling into %s", req.TerminalID, req.MerchantAccount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"terminal_id":      term.ID(),
		"merchant_account": merchant.Number(),
	})
}

// ListChannels lists provisioned channels
// @Summary List channels
// @Description List the ids of provisioned ATMs and EDC terminals
// @Tags registry
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{atms=[]string,edcs=[]string}
// @Router /registry/channels [get]
func (h *RegistryHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"atms": h.bank.ATMs(),
		"edcs": h.bank.EDCs(),
	})
}

// ListUsers lists registered users and their accounts
// @Summary List users
// @Description List registered customers with their account numbers and balances
// @Tags registry
// @Produce json
// @Security BearerAuth
// @Success 200 {array} object{citizen_id=string,name=string,accounts=[]object}
// @Router /registry/users [get]
func (h *RegistryHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	type accountView struct {
		Number  string `json:"number"`
		Balance string `json:"balance"`
	}
	type userView struct {
		CitizenID string        `json:"citizen_id"`
		Name      string        `json:"name"`
		Accounts  []accountView `json:"accounts"`
	}

	users := h.bank.Users()
	out := make([]userView, 0, len(users))
	for _, u := range users {
		uv := userView{CitizenID: u.CitizenID(), Name: u.Name(), Accounts: []accountView{}}
		for _, a := range u.Accounts() {
			uv.Accounts = append(uv.Accounts, accountView{Number: a.Number(), Balance: a.Balance().String()})
		}
		out = append(out, uv)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
