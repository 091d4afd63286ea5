package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type cardRequest struct {
	Number string `validate:"required"`
	PIN    string `validate:"required,pin"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&cardRequest{Number: "4111", PIN: "1234"})
		assert.NoError(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		err := vh.ValidateStruct(&cardRequest{})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 2)
	})
}

func TestValidationHelper_PINRule(t *testing.T) {
	vh := NewValidationHelper()

	cases := []struct {
		pin   string
		valid bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"12 4", false},
	}

	for _, tc := range cases {
		err := vh.ValidateStruct(&cardRequest{Number: "4111", PIN: tc.pin})
		if tc.valid {
			assert.NoError(t, err, "pin %q should validate", tc.pin)
		} else {
			assert.Error(t, err, "pin %q should be rejected", tc.pin)
		}
	}
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		rec := httptest.NewRecorder()

		SendErrorResponse(rec, "Invalid request", http.StatusBadRequest, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid request", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("with validation details", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&cardRequest{Number: "4111"})
		assert.Error(t, err)

		rec := httptest.NewRecorder()
		SendErrorResponse(rec, "Validation failed", http.StatusBadRequest, err)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "PIN")
	})
}
