package controllers

import (
	"net/http"

	"github.com/AmielDylan/sendbox-sub002/api/responses"
	"github.com/AmielDylan/sendbox-sub002/api/validators"
	"github.com/AmielDylan/sendbox-sub002/internal/pricing"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

type quoteRequest struct {
	WeightKG       float64 `json:"weight_kg" validate:"required,gt=0"`
	PricePerKG     float64 `json:"price_per_kg" validate:"required,gt=0"`
	DeclaredValue  float64 `json:"declared_value" validate:"gte=0"`
	InsuranceOpted bool    `json:"insurance_opted"`
}

type quoteResponse struct {
	TransportPrice    string  `json:"transport_price"`
	Commission        string  `json:"commission"`
	CommissionRate    string  `json:"commission_rate"`
	Subtotal          string  `json:"subtotal"`
	InsurancePremium  *string `json:"insurance_premium,omitempty"`
	InsuranceCoverage *string `json:"insurance_coverage,omitempty"`
	Total             string  `json:"total"`
}

// PricingQuote previews the full price breakdown for a prospective booking.
// Public: quoting commits nothing.
func PricingQuote(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown := pricing.Compute(req.WeightKG, req.PricePerKG, req.DeclaredValue, req.InsuranceOpted).Rounded()

		resp := quoteResponse{
			TransportPrice: breakdown.TransportPrice.String(),
			Commission:     breakdown.Commission.String(),
			CommissionRate: breakdown.CommissionRate.String(),
			Subtotal:       breakdown.Subtotal.String(),
			Total:          breakdown.Total.String(),
		}
		if breakdown.InsurancePremium != nil {
			premium := breakdown.InsurancePremium.String()
			resp.InsurancePremium = &premium
		}
		if breakdown.InsuranceCoverage != nil {
			coverage := breakdown.InsuranceCoverage.String()
			resp.InsuranceCoverage = &coverage
		}

		responses.WriteSuccess(w, resp)
	}
}
