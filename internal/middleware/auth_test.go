package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func signTestToken(t *testing.T, staffID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": staffID,
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	assert.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	InitAuthMiddleware(nil)

	var gotStaffID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStaffID, _ = r.Context().Value(StaffIDKey).(string)
		gotRole, _ = r.Context().Value(RoleKey).(string)
		w.WriteHeader(http.StatusOK)
	})
	guarded := AuthMiddleware(next)

	t.Run("valid token passes claims through", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/teller/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+signTestToken(t, "T-1042", "teller"))
		w := httptest.NewRecorder()

		guarded.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "T-1042", gotStaffID)
		assert.Equal(t, "teller", gotRole)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/teller/accounts", nil)
		w := httptest.NewRecorder()

		guarded.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/teller/accounts", nil)
		r.Header.Set("Authorization", "token-without-scheme")
		w := httptest.NewRecorder()

		guarded.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with wrong key", func(t *testing.T) {
		viper.Set("jwt.secret_key", "another-secret")
		bad := signTestToken(t, "T-1042", "teller")
		viper.Set("jwt.secret_key", "test-secret")

		r := httptest.NewRequest("GET", "/teller/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+bad)
		w := httptest.NewRecorder()

		guarded.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		InitAuthMiddleware(redisClient)
		defer InitAuthMiddleware(nil)

		token := signTestToken(t, "T-1042", "teller")
		redisMock.ExpectExists("auth:revoked:" + token).SetVal(1)

		r := httptest.NewRequest("GET", "/teller/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		guarded.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	InitAuthMiddleware(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	admin := AuthMiddleware(RequireRole("admin")(next))

	t.Run("admin role allowed", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/admin/batch/annual-fees", nil)
		r.Header.Set("Authorization", "Bearer "+signTestToken(t, "A-0001", "admin"))
		w := httptest.NewRecorder()

		admin.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("teller role rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/admin/batch/annual-fees", nil)
		r.Header.Set("Authorization", "Bearer "+signTestToken(t, "T-1042", "teller"))
		w := httptest.NewRecorder()

		admin.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
