package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundToStep(t *testing.T) {
	cases := []struct {
		in, step, want string
	}{
		{"104.125", "0.05", "104.15"},
		{"104.124", "0.05", "104.1"},
		{"929.1666", "0.05", "929.15"},
		{"3.5", "0.5", "3.5"},
		{"3.74", "0.5", "3.5"},
		{"3.75", "0.5", "4"},
	}
	for _, c := range cases {
		got := RoundToStep(d(c.in), d(c.step))
		assert.True(t, d(c.want).Equal(got), "RoundToStep(%s, %s) = %s, want %s", c.in, c.step, got, c.want)
	}
}

func TestCeilToStep(t *testing.T) {
	assert.True(t, d("10000").Equal(CeilToStep(d("9980.01"), d("20"))))
	assert.True(t, d("10000").Equal(CeilToStep(d("10000"), d("20"))))
	assert.True(t, d("2879").Equal(CeilRinggit(d("2878.7"))))
}

func TestHelpers(t *testing.T) {
	assert.True(t, d("5").Equal(Max(d("5"), d("-1"))))
	assert.True(t, d("-1").Equal(Min(d("5"), d("-1"))))
	assert.True(t, decimal.Zero.Equal(NonNegative(d("-3"))))
	assert.True(t, d("6.5").Equal(Sum(d("1"), d("2.5"), d("3"))))
	assert.True(t, d("7").Equal(ValueOr(nil, d("7"))))
	v := d("2")
	assert.True(t, d("2").Equal(ValueOr(&v, d("7"))))
	assert.True(t, d("1.01").Equal(Cents(d("1.005"))))
}
