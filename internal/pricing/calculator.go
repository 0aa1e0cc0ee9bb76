package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Pricing policy constants. The commission rate is snapshotted onto the
// booking at capture time so later rate changes never re-price old bookings.
var (
	CommissionRate       = decimal.NewFromFloat(0.12)
	InsuranceRate        = decimal.NewFromFloat(0.03)
	InsuranceBaseFee     = decimal.Zero
	MaxInsuranceCoverage = decimal.NewFromInt(500)
)

// Breakdown is the canonical cost decomposition of a booking. Amounts are
// kept unrounded; Rounded produces the 2-decimal display form so rounding
// error never compounds across bookings.
type Breakdown struct {
	TransportPrice    decimal.Decimal
	Commission        decimal.Decimal
	CommissionRate    decimal.Decimal
	Subtotal          decimal.Decimal
	InsurancePremium  *decimal.Decimal
	InsuranceCoverage *decimal.Decimal
	Total             decimal.Decimal
}

// PlatformFee is the portion retained by the platform: commission plus
// insurance premium. It is excluded from the traveler's net payout.
func (b Breakdown) PlatformFee() decimal.Decimal {
	fee := b.Commission
	if b.InsurancePremium != nil {
		fee = fee.Add(*b.InsurancePremium)
	}
	return fee
}

// Net is the traveler's share: transport price minus commission.
func (b Breakdown) Net() decimal.Decimal {
	return b.TransportPrice.Sub(b.Commission)
}

// Rounded returns a copy with every amount rounded to 2 decimal places,
// for display and provider amount conversion only.
func (b Breakdown) Rounded() Breakdown {
	out := Breakdown{
		TransportPrice: b.TransportPrice.Round(2),
		Commission:     b.Commission.Round(2),
		CommissionRate: b.CommissionRate,
		Subtotal:       b.Subtotal.Round(2),
		Total:          b.Total.Round(2),
	}
	if b.InsurancePremium != nil {
		premium := b.InsurancePremium.Round(2)
		out.InsurancePremium = &premium
	}
	if b.InsuranceCoverage != nil {
		coverage := b.InsuranceCoverage.Round(2)
		out.InsuranceCoverage = &coverage
	}
	return out
}

// Compute derives the full price breakdown for a booking. It is
// referentially transparent: identical inputs always produce identical
// outputs, which is what lets both the capture orchestrator and UI previews
// treat it as the single source of truth.
//
// Negative or non-finite inputs are clamped to zero so invalid data can
// never produce a negative price.
func Compute(weightKG, pricePerKG, declaredValue float64, insuranceOpted bool) Breakdown {
	return ComputeDecimal(clamp(weightKG), clamp(pricePerKG), clamp(declaredValue), insuranceOpted)
}

// ComputeDecimal is Compute for callers that already carry exact decimals,
// such as the capture orchestrator reading booking columns.
func ComputeDecimal(weightKG, pricePerKG, declaredValue decimal.Decimal, insuranceOpted bool) Breakdown {
	weight := clampDecimal(weightKG)
	rate := clampDecimal(pricePerKG)
	value := clampDecimal(declaredValue)

	transportPrice := weight.Mul(rate)
	commission := transportPrice.Mul(CommissionRate)
	subtotal := transportPrice.Add(commission)

	breakdown := Breakdown{
		TransportPrice: transportPrice,
		Commission:     commission,
		CommissionRate: CommissionRate,
		Subtotal:       subtotal,
		Total:          subtotal,
	}

	if insuranceOpted {
		premium := value.Mul(InsuranceRate).Add(InsuranceBaseFee)
		coverage := decimal.Min(value, MaxInsuranceCoverage)
		breakdown.InsurancePremium = &premium
		breakdown.InsuranceCoverage = &coverage
		breakdown.Total = subtotal.Add(premium)
	}

	return breakdown
}

func clamp(value float64) decimal.Decimal {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(value)
}

func clampDecimal(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
