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
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// EDCHandler drives merchant terminals over HTTP. A successful swipe opens a
// Redis session; payments quote the session token.
type EDCHandler struct {
	bank      *registry.Bank
	sessions  *services.SessionStore
	receipts  *services.ReceiptService
	archive   *services.ArchiveService
	audit     *audit.Logger
	validator *services.ValidationHelper
}

func NewEDCHandler(bank *registry.Bank, sessions *services.SessionStore, receipts *services.ReceiptService, archive *services.ArchiveService, auditLog *audit.Logger) *EDCHandler {
	return &EDCHandler{
		bank:      bank,
		sessions:  sessions,
		receipts:  receipts,
		archive:   archive,
		audit:     auditLog,
		validator: services.NewValidationHelper(),
	}
}

// SwipeCard authenticates a debit card at the terminal
// @Summary Swipe card
// @Description Verify a debit-family card and open a payment session
// @Tags edc
// @Accept json
// @Produce json
// @Param edcID path string true "Terminal id"
// @Param request body object{card_number=string,pin=string} true "Swipe request"
// @Success 200 {object} object{token=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /edc/{edcID}/swipe [post]
func (h *EDCHandler) SwipeCard(w http.ResponseWriter, r *http.Request) {
	term, ok := h.bank.FindEDC(chi.URLParam(r, "edcID"))
	if !ok {
		services.SendErrorResponse(w, "Unknown terminal", http.StatusNotFound, nil)
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
		h.audit.LogRejection("EDC_SWIPE", term.ID(), "", channel.ErrInvalidCredential)
		services.SendErrorResponse(w, channel.ErrInvalidCredential.Error(), http.StatusUnauthorized, nil)
		return
	}

	if err := term.SwipeCard(c, req.PIN); err != nil {
		h.audit.LogRejection("EDC_SWIPE", term.ID(), c.AccountNumber(), err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	sess, err := h.sessions.Open(r.Context(), term.ID(), c.Number(), c.AccountNumber())
	if err != nil {
		services.SendErrorResponse(w, "Failed to open session", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[EDC] Session opened on %s for card %s", term.ID(), c.Number())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": sess.Token})
}

// Pay charges the swiped card
// @Summary EDC payment
// @Description Charge the swiped card's account and settle into the merchant account; cashback per card variant
// @Tags edc
// @Accept json
// @Produce json
// @Param edcID path string true "Terminal id"
// @Param request body object{token=string,amount=string} true "Payment request"
// @Success 200 {object} object{transaction=string,receipt=string,merchant_balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /edc/{edcID}/pay [post]
func (h *EDCHandler) Pay(w http.ResponseWriter, r *http.Request) {
	term, ok := h.bank.FindEDC(chi.URLParam(r, "edcID"))
	if !ok {
		services.SendErrorResponse(w, "Unknown terminal", http.StatusNotFound, nil)
		return
	}

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

	sess, err := h.sessions.Get(r.Context(), req.Token)
	if err != nil || sess.ChannelID != term.ID() {
		services.SendErrorResponse(w, services.ErrSessionNotFound.Error(), http.StatusUnauthorized, nil)
		return
	}

	c, ok := h.bank.FindCardByNumber(sess.CardNumber)
	if !ok {
		services.SendErrorResponse(w, channel.ErrInvalidCredential.Error(), http.StatusUnauthorized, nil)
		return
	}

	tx, err := term.Pay(c, amount)
	if err != nil {
		h.audit.LogRejection("EDC_PAY", term.ID(), sess.AccountNumber, err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	h.audit.LogOperation("EDC_PAY", term.ID(), sess.AccountNumber, amount.String())
	if err := h.archive.Record(r.Context(), sess.AccountNumber, tx); err != nil {
		log.Printf("[EDC] Journal write failed for %s: %v", sess.AccountNumber, err)
	}
	if merchTx, ok := term.Merchant().LastTransaction(); ok {
		if err := h.archive.Record(r.Context(), term.Merchant().Number(), merchTx); err != nil {
			log.Printf("[EDC] Journal write failed for merchant %s: %v", term.Merchant().Number(), err)
		}
	}

	receipt, err := h.receipts.Issue(r.Context(), term.ID(), tx)
	if err != nil {
		log.Printf("[EDC] Receipt issue failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"transaction":      tx.String(),
		"receipt":          receipt.Reference,
		"merchant_balance": term.Merchant().Balance().String(),
	})
}
