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
	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

const (
	testSessionTTL = 5 * time.Minute
	testReceiptTTL = 24 * time.Hour
)

type atmHarness struct {
	handler   *ATMHandler
	bank      *registry.Bank
	redisMock redismock.ClientMock
	sqlMock   sqlmock.Sqlmock
}

// newATMHarness wires a bank with one card-holding savings account, a second
// savings account as a transfer target and one provisioned machine.
func newATMHarness(t *testing.T) *atmHarness {
	t.Helper()

	bank := registry.New()
	owner := ledger.NewUser("1103700000001", "Somchai")
	assert.NoError(t, bank.RegisterUser(owner))

	savings := ledger.NewSavingsAccount("SAV001", owner, decimal.NewFromInt(100000))
	assert.NoError(t, bank.RegisterAccount(savings))
	assert.NoError(t, savings.BindCard(card.NewATMCard("4111-0001", "SAV001", "1234")))

	target := ledger.NewSavingsAccount("SAV002", owner, decimal.Zero)
	assert.NoError(t, bank.RegisterAccount(target))

	atm := channel.NewATM(bank, "ATM001", decimal.NewFromInt(200000))
	assert.NoError(t, bank.RegisterATM(atm))

	redisClient, redisMock := redismock.NewClientMock()
	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewATMHandler(bank,
		services.NewSessionStore(redisClient, testSessionTTL),
		services.NewReceiptService(redisClient, testReceiptTTL),
		services.NewArchiveService(db),
		audit.NewLogger())

	return &atmHarness{handler: h, bank: bank, redisMock: redisMock, sqlMock: sqlMock}
}

// postMachine invokes an ATM handler with the machine id set as a chi route
// parameter, the way the router would.
func postMachine(t *testing.T, handler http.HandlerFunc, machineID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	r := httptest.NewRequest("POST", "/atm/"+machineID, bytes.NewBuffer(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("atmID", machineID)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

// expectSession primes the mock with the session lookup a cash operation does.
func (h *atmHarness) expectSession(token string) {
	sess := services.Session{
		Token:         token,
		ChannelID:     "ATM001",
		CardNumber:    "4111-0001",
		AccountNumber: "SAV001",
		OpenedAt:      time.Now(),
	}
	data, _ := json.Marshal(sess)
	h.redisMock.ExpectGet("session:" + token).SetVal(string(data))
	h.redisMock.ExpectExpire("session:"+token, testSessionTTL).SetVal(true)
}

func TestATMHandler_InsertCard(t *testing.T) {
	h := newATMHarness(t)

	t.Run("successful insert opens session", func(t *testing.T) {
		h.redisMock.Regexp().ExpectSet(`session:.+`, `.+`, testSessionTTL).SetVal("OK")

		w := postMachine(t, h.handler.InsertCard, "ATM001", map[string]string{
			"card_number": "4111-0001", "pin": "1234",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp["token"])
		assert.Equal(t, "SAV001", resp["account_number"])
		assert.Equal(t, "100000", resp["balance"])
	})

	t.Run("wrong pin", func(t *testing.T) {
		w := postMachine(t, h.handler.InsertCard, "ATM001", map[string]string{
			"card_number": "4111-0001", "pin": "9999",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown card", func(t *testing.T) {
		w := postMachine(t, h.handler.InsertCard, "ATM001", map[string]string{
			"card_number": "0000-0000", "pin": "1234",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown machine", func(t *testing.T) {
		w := postMachine(t, h.handler.InsertCard, "ATM999", map[string]string{
			"card_number": "4111-0001", "pin": "1234",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestATMHandler_Deposit(t *testing.T) {
	h := newATMHarness(t)

	t.Run("successful deposit", func(t *testing.T) {
		h.expectSession("tok-1")
		h.sqlMock.ExpectExec("INSERT INTO transaction_journal").
			WillReturnResult(sqlmock.NewResult(1, 1))
		h.redisMock.Regexp().ExpectSet(`receipt:.+`, `.+`, testReceiptTTL).SetVal("OK")

		w := postMachine(t, h.handler.Deposit, "ATM001", map[string]string{
			"token": "tok-1", "amount": "5000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "105000", resp["balance"])
		assert.Equal(t, "D-ATM:001-5000-105000", resp["transaction"])
		assert.NotEmpty(t, resp["receipt"])
		assert.NoError(t, h.sqlMock.ExpectationsWereMet())
	})

	t.Run("expired session", func(t *testing.T) {
		h.redisMock.ExpectGet("session:gone").RedisNil()

		w := postMachine(t, h.handler.Deposit, "ATM001", map[string]string{
			"token": "gone", "amount": "5000",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		h.expectSession("tok-1")

		w := postMachine(t, h.handler.Deposit, "ATM001", map[string]string{
			"token": "tok-1", "amount": "-10",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestATMHandler_Withdraw(t *testing.T) {
	h := newATMHarness(t)

	t.Run("per-transaction cap", func(t *testing.T) {
		h.expectSession("tok-1")

		w := postMachine(t, h.handler.Withdraw, "ATM001", map[string]string{
			"token": "tok-1", "amount": "50001",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("successful withdrawal", func(t *testing.T) {
		h.expectSession("tok-1")
		h.sqlMock.ExpectExec("INSERT INTO transaction_journal").
			WillReturnResult(sqlmock.NewResult(1, 1))
		h.redisMock.Regexp().ExpectSet(`receipt:.+`, `.+`, testReceiptTTL).SetVal("OK")

		w := postMachine(t, h.handler.Withdraw, "ATM001", map[string]string{
			"token": "tok-1", "amount": "2000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "98000", resp["balance"])
		assert.Equal(t, "W-ATM:001-2000-98000", resp["transaction"])
	})

	t.Run("insufficient funds", func(t *testing.T) {
		// Session bound to the empty account.
		sess := services.Session{
			Token:         "tok-2",
			ChannelID:     "ATM001",
			CardNumber:    "4111-0001",
			AccountNumber: "SAV002",
			OpenedAt:      time.Now(),
		}
		data, _ := json.Marshal(sess)
		h.redisMock.ExpectGet("session:tok-2").SetVal(string(data))
		h.redisMock.ExpectExpire("session:tok-2", testSessionTTL).SetVal(true)

		w := postMachine(t, h.handler.Withdraw, "ATM001", map[string]string{
			"token": "tok-2", "amount": "100",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestATMHandler_Transfer(t *testing.T) {
	h := newATMHarness(t)

	t.Run("successful transfer journals both legs", func(t *testing.T) {
		h.expectSession("tok-1")
		h.sqlMock.ExpectBegin()
		h.sqlMock.ExpectExec("INSERT INTO transaction_journal").
			WillReturnResult(sqlmock.NewResult(1, 1))
		h.sqlMock.ExpectExec("INSERT INTO transaction_journal").
			WillReturnResult(sqlmock.NewResult(2, 1))
		h.sqlMock.ExpectCommit()

		w := postMachine(t, h.handler.Transfer, "ATM001", map[string]string{
			"token": "tok-1", "to_account": "SAV002", "amount": "30000",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "70000", resp["balance"])
		assert.Equal(t, "TW-ATM:001-30000-70000", resp["transaction"])
		assert.NoError(t, h.sqlMock.ExpectationsWereMet())

		target, ok := h.bank.FindAccountByNumber("SAV002")
		assert.True(t, ok)
		assert.Equal(t, "30000", target.Balance().String())
	})

	t.Run("unknown target account", func(t *testing.T) {
		h.expectSession("tok-1")

		w := postMachine(t, h.handler.Transfer, "ATM001", map[string]string{
			"token": "tok-1", "to_account": "NOPE", "amount": "100",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("transfer to self", func(t *testing.T) {
		h.expectSession("tok-1")

		w := postMachine(t, h.handler.Transfer, "ATM001", map[string]string{
			"token": "tok-1", "to_account": "SAV001", "amount": "100",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestATMHandler_EjectCard(t *testing.T) {
	h := newATMHarness(t)

	h.redisMock.ExpectDel("session:tok-1").SetVal(1)

	w := postMachine(t, h.handler.EjectCard, "ATM001", map[string]string{"token": "tok-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, h.redisMock.ExpectationsWereMet())
}
