package money

import "github.com/shopspring/decimal"

var (
	Cent     = decimal.RequireFromString("0.01")
	Half     = decimal.RequireFromString("0.5")
	Hundred  = decimal.NewFromInt(100)
	Sixty    = decimal.NewFromInt(60)
	zeroStep = decimal.Zero
)

// Cents rounds half away from zero to two decimals.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundToStep rounds to the nearest multiple of step, halves going up.
func RoundToStep(d, step decimal.Decimal) decimal.Decimal {
	if step.Equal(zeroStep) {
		return d
	}
	return d.Div(step).Round(0).Mul(step)
}

// CeilToStep rounds up to the next multiple of step.
func CeilToStep(d, step decimal.Decimal) decimal.Decimal {
	if step.Equal(zeroStep) {
		return d
	}
	return d.Div(step).Ceil().Mul(step)
}

// CeilRinggit rounds up to a whole ringgit.
func CeilRinggit(d decimal.Decimal) decimal.Decimal {
	return d.Ceil()
}

// RoundHalf rounds a day count to the nearest 0.5.
func RoundHalf(d decimal.Decimal) decimal.Decimal {
	return RoundToStep(d, Half)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ValueOr dereferences p, falling back when nil.
func ValueOr(p *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if p == nil {
		return fallback
	}
	return *p
}
