package card

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCard_Verify(t *testing.T) {
	t.Run("matching four digit pin passes", func(t *testing.T) {
		c := NewATMCard("4111", "SAV001", "1234")
		assert.True(t, c.Verify("1234"))
	})

	t.Run("wrong pin fails", func(t *testing.T) {
		c := NewATMCard("4111", "SAV001", "1234")
		assert.False(t, c.Verify("4321"))
	})

	t.Run("malformed stored pin never verifies", func(t *testing.T) {
		cases := []string{"123", "12345", "12a4", ""}
		for _, pin := range cases {
			c := NewATMCard("4111", "SAV001", pin)
			assert.False(t, c.Verify(pin), "stored pin %q must be unusable", pin)
		}
	})
}

func TestCard_AnnualFee(t *testing.T) {
	assert.Equal(t, "150", NewATMCard("4111", "SAV001", "1234").AnnualFee().String())
	assert.Equal(t, "300", NewDebitCard("4211", "SAV001", "1234").AnnualFee().String())
	assert.Equal(t, "300", NewShoppingDebitCard("4221", "SAV001", "1234").AnnualFee().String())
	assert.Equal(t, "300", NewTravelDebitCard("4231", "SAV001", "1234").AnnualFee().String())
}

func TestCashback(t *testing.T) {
	t.Run("plain debit card earns nothing", func(t *testing.T) {
		c := NewDebitCard("4211", "SAV001", "1234")
		assert.True(t, c.Cashback(dec("5000")).IsZero())
	})

	t.Run("travel debit card earns nothing", func(t *testing.T) {
		c := NewTravelDebitCard("4231", "SAV001", "1234")
		assert.True(t, c.Cashback(dec("5000")).IsZero())
	})

	t.Run("shopping card earns 0.1 percent above the threshold", func(t *testing.T) {
		c := NewShoppingDebitCard("4221", "SAV001", "1234")

		assert.Equal(t, "2", c.Cashback(dec("2000")).String())
		assert.Equal(t, "1.5", c.Cashback(dec("1500")).String())
	})

	t.Run("threshold amount is exclusive", func(t *testing.T) {
		c := NewShoppingDebitCard("4221", "SAV001", "1234")

		assert.True(t, c.Cashback(dec("1000")).IsZero())
		assert.False(t, c.Cashback(dec("1000.01")).IsZero())
	})
}

func TestDebitFamily(t *testing.T) {
	t.Run("debit variants satisfy the Debit interface", func(t *testing.T) {
		var _ Debit = NewDebitCard("4211", "SAV001", "1234")
		var _ Debit = NewShoppingDebitCard("4221", "SAV001", "1234")
		var _ Debit = NewTravelDebitCard("4231", "SAV001", "1234")
	})

	t.Run("atm card is outside the debit family", func(t *testing.T) {
		var c Card = NewATMCard("4111", "SAV001", "1234")
		_, ok := c.(Debit)
		assert.False(t, ok)
	})
}

func TestTravelDebitCard_InsuranceLimit(t *testing.T) {
	c := NewTravelDebitCard("4231", "SAV001", "1234")
	assert.Equal(t, "300000", c.InsuranceLimit().String())
}
