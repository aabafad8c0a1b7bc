package model

import "github.com/shopspring/decimal"

// MoneyPlaces is the currency precision used for every stored amount.
const MoneyPlaces = 2

// RoundMoney rounds an amount half away from zero to currency precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MinorUnits converts an amount to the smallest currency unit (e.g. paise, cents).
func MinorUnits(d decimal.Decimal) int64 {
	return RoundMoney(d).Shift(MoneyPlaces).IntPart()
}
