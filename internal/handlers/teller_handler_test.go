package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/krungthon/corebank/internal/audit"
	"github.com/krungthon/corebank/internal/card"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

type tellerHarness struct {
	handler   *TellerHandler
	bank      *registry.Bank
	redisMock redismock.ClientMock
	sqlMock   sqlmock.Sqlmock
}

// newTellerHarness wires a bank with a savings account (carded), a fixed
// account and a current account, all under one customer.
func newTellerHarness(t *testing.T) *tellerHarness {
	t.Helper()

	bank := registry.New()
	owner := ledger.NewUser("1103700000001", "Somchai")
	assert.NoError(t, bank.RegisterUser(owner))

	savings := ledger.NewSavingsAccount("SAV001", owner, decimal.NewFromInt(100000))
	assert.NoError(t, bank.RegisterAccount(savings))
	assert.NoError(t, savings.BindCard(card.NewATMCard("4111-0001", "SAV001", "1234")))

	assert.NoError(t, bank.RegisterAccount(ledger.NewFixedAccount("FIX001", owner, 12)))
	assert.NoError(t, bank.RegisterAccount(ledger.NewCurrentAccount("CUR001", owner, decimal.Zero)))

	redisClient, redisMock := redismock.NewClientMock()
	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewTellerHandler(bank,
		services.NewArchiveService(db),
		services.NewReceiptService(redisClient, testReceiptTTL),
		services.NewStatementService("KRTHTHBK", "THB"),
		audit.NewLogger())

	return &tellerHarness{handler: h, bank: bank, redisMock: redisMock, sqlMock: sqlMock}
}

// postBranch invokes a teller handler with the branch number as a chi route
// parameter.
func postBranch(t *testing.T, handler http.HandlerFunc, branch string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	r := httptest.NewRequest("POST", "/teller/counter/"+branch, bytes.NewBuffer(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("branch", branch)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func getWithParam(t *testing.T, handler http.HandlerFunc, param, value string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("GET", "/teller/"+value, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func (h *tellerHarness) expectJournalWrite() {
	h.sqlMock.ExpectExec("INSERT INTO transaction_journal").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func (h *tellerHarness) expectReceipt() {
	h.redisMock.Regexp().ExpectSet(`receipt:.+`, `.+`, testReceiptTTL).SetVal("OK")
}

func TestTellerHandler_CounterDeposit(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("successful deposit", func(t *testing.T) {
		h.expectJournalWrite()
		h.expectReceipt()

		w := postBranch(t, h.handler.Deposit, "001", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "1103700000001",
			Amount:        "5000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "105000", resp["balance"])
		assert.Equal(t, "D-COUNTER:001-5000-105000", resp["transaction"])
		assert.NotEmpty(t, resp["receipt"])
	})

	t.Run("identity mismatch", func(t *testing.T) {
		w := postBranch(t, h.handler.Deposit, "001", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "9999999999999",
			Amount:        "5000",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		w := postBranch(t, h.handler.Deposit, "001", counterRequest{
			AccountNumber: "NOPE",
			CitizenID:     "1103700000001",
			Amount:        "5000",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTellerHandler_CounterWithdraw(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("successful withdrawal", func(t *testing.T) {
		h.expectJournalWrite()
		h.expectReceipt()

		w := postBranch(t, h.handler.Withdraw, "002", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "1103700000001",
			Amount:        "2000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "98000", resp["balance"])
		assert.Equal(t, "W-COUNTER:002-2000-98000", resp["transaction"])
	})

	t.Run("insufficient funds", func(t *testing.T) {
		w := postBranch(t, h.handler.Withdraw, "002", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "1103700000001",
			Amount:        "999999",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTellerHandler_CounterTransfer(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("successful transfer exports pacs008", func(t *testing.T) {
		h.sqlMock.ExpectBegin()
		h.expectJournalWrite()
		h.expectJournalWrite()
		h.sqlMock.ExpectCommit()

		w := postBranch(t, h.handler.Transfer, "001", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "1103700000001",
			Amount:        "10000",
			ToAccount:     "CUR001",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "90000", resp["balance"])
		assert.Equal(t, "TW-COUNTER:001-10000-90000", resp["transaction"])
		assert.Contains(t, resp["pacs008"], "SAV001")
		assert.Contains(t, resp["pacs008"], "CUR001")
		assert.Contains(t, resp["pacs008"], "KRTHTHBK")
		assert.NoError(t, h.sqlMock.ExpectationsWereMet())

		target, _ := h.bank.FindAccountByNumber("CUR001")
		assert.Equal(t, "10000", target.Balance().String())
	})

	t.Run("missing to_account", func(t *testing.T) {
		w := postBranch(t, h.handler.Transfer, "001", counterRequest{
			AccountNumber: "SAV001",
			CitizenID:     "1103700000001",
			Amount:        "100",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTellerHandler_AccountStatement(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("lists transaction lines", func(t *testing.T) {
		w := getWithParam(t, h.handler.AccountStatement, "number", "SAV001")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			AccountNumber string   `json:"account_number"`
			Balance       string   `json:"balance"`
			Transactions  []string `json:"transactions"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "SAV001", resp.AccountNumber)
		assert.Equal(t, "100000", resp.Balance)
		assert.NotEmpty(t, resp.Transactions)
	})

	t.Run("unknown account", func(t *testing.T) {
		w := getWithParam(t, h.handler.AccountStatement, "number", "NOPE")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTellerHandler_ApplySavingsInterest(t *testing.T) {
	h := newTellerHarness(t)

	h.expectJournalWrite()

	r := httptest.NewRequest("POST", "/admin/batch/savings-interest", nil)
	w := httptest.NewRecorder()
	h.handler.ApplySavingsInterest(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, 1, resp["credited"])

	sav, _ := h.bank.FindAccountByNumber("SAV001")
	assert.Equal(t, "100500", sav.Balance().String())
}

func TestTellerHandler_ApplyFixedMaturity(t *testing.T) {
	h := newTellerHarness(t)

	// Fund the fixed account at the counter first.
	h.expectJournalWrite()
	h.expectReceipt()
	w := postBranch(t, h.handler.Deposit, "001", counterRequest{
		AccountNumber: "FIX001",
		CitizenID:     "1103700000001",
		Amount:        "10000",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("full-year band", func(t *testing.T) {
		h.expectJournalWrite()

		depositedAt := time.Now().AddDate(0, 0, -400).Format(time.RFC3339)
		body, _ := json.Marshal(map[string]string{
			"account_number": "FIX001",
			"deposited_at":   depositedAt,
		})
		r := httptest.NewRequest("POST", "/admin/batch/fixed-maturity", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		h.handler.ApplyFixedMaturity(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "250", resp["interest"])
		assert.Equal(t, "10250", resp["balance"])
		assert.Equal(t, "I-SYSTEM:-250-10250", resp["transaction"])
	})

	t.Run("not a fixed account", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"account_number": "SAV001",
			"deposited_at":   time.Now().Format(time.RFC3339),
		})
		r := httptest.NewRequest("POST", "/admin/batch/fixed-maturity", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		h.handler.ApplyFixedMaturity(w, r)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"account_number": "FIX001",
			"deposited_at":   "yesterday",
		})
		r := httptest.NewRequest("POST", "/admin/batch/fixed-maturity", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		h.handler.ApplyFixedMaturity(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTellerHandler_ChargeAnnualFees(t *testing.T) {
	h := newTellerHarness(t)

	// Only the carded savings account is charged.
	h.expectJournalWrite()

	r := httptest.NewRequest("POST", "/admin/batch/annual-fees", nil)
	w := httptest.NewRecorder()
	h.handler.ChargeAnnualFees(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, 1, resp["charged"])

	sav, _ := h.bank.FindAccountByNumber("SAV001")
	assert.Equal(t, "99850", sav.Balance().String())
}

func TestTellerHandler_GetReceipt(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("found", func(t *testing.T) {
		stored := services.Receipt{
			Reference: "ref-1",
			ChannelID: "COUNTER:001",
			Rendered:  "D-COUNTER:001-5000-105000",
			IssuedAt:  time.Now(),
		}
		data, _ := json.Marshal(stored)
		h.redisMock.ExpectGet("receipt:ref-1").SetVal(string(data))

		w := getWithParam(t, h.handler.GetReceipt, "reference", "ref-1")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp services.Receipt
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "D-COUNTER:001-5000-105000", resp.Rendered)
	})

	t.Run("not found", func(t *testing.T) {
		h.redisMock.ExpectGet("receipt:gone").RedisNil()

		w := getWithParam(t, h.handler.GetReceipt, "reference", "gone")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTellerHandler_JournalHistory(t *testing.T) {
	h := newTellerHarness(t)

	t.Run("returns rows", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "account_number", "kind", "origin", "amount", "delta", "balance", "rendered", "recorded_at"}).
			AddRow(1, "SAV001", "D", "ATM001", "5000", "5000", "105000", "D-ATM:001-5000-105000", time.Now())
		h.sqlMock.ExpectQuery("SELECT id, account_number, kind, origin").
			WithArgs("SAV001").
			WillReturnRows(rows)

		w := getWithParam(t, h.handler.JournalHistory, "number", "SAV001")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []services.JournalEntry
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Len(t, resp, 1)
		assert.Equal(t, "D-ATM:001-5000-105000", resp[0].Rendered)
	})

	t.Run("empty journal renders as empty array", func(t *testing.T) {
		h.sqlMock.ExpectQuery("SELECT id, account_number, kind, origin").
			WithArgs("EMPTY").
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_number", "kind", "origin", "amount", "delta", "balance", "rendered", "recorded_at"}))

		w := getWithParam(t, h.handler.JournalHistory, "number", "EMPTY")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})
}
