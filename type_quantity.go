package rebalance

import "github.com/shopspring/decimal"

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// D is a short hand for building decimals from literals.
func D[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	return newDecimal(value)
}

// wholeUnits truncates q toward zero. Orders never carry a fractional share or contract.
func wholeUnits(q decimal.Decimal) decimal.Decimal { return q.Truncate(0) }

// orOne returns d, or one when d is not strictly positive.
// Multipliers and exchange rates use it as their neutral value.
func orOne(d decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return d
}

// Quantity of shares or contracts, shown without trailing zeroes.
func formatQuantity(q decimal.Decimal) string { return q.String() }
