package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/middleware"
	"github.com/AmielDylan/sendbox-sub002/api/responses"
	"github.com/AmielDylan/sendbox-sub002/internal/financials"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

// SummaryService is the slice of the financials service the dashboard
// endpoint needs.
type SummaryService interface {
	GetBookingSummary(ctx context.Context, bookingID uuid.UUID, viewer financials.Viewer) (*financials.Summary, error)
	AggregateUserFinancials(ctx context.Context, userID uuid.UUID, role financials.PartyRole) (*financials.UserFinancials, error)
}

// BookingFinancials returns the money view of one booking for its requester,
// its traveler, or an admin.
func BookingFinancials(svc SummaryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "financials service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := financials.Viewer{
			UserID: actorID,
			Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
		}

		summary, err := svc.GetBookingSummary(r.Context(), bookingID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type userFinancialsResponse struct {
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	TotalToReceive string `json:"total_to_receive"`
	AwaitingPickup string `json:"awaiting_pickup"`
	InTransit      string `json:"in_transit"`
	TotalBlocked   string `json:"total_blocked"`
	TotalPaid      string `json:"total_paid"`

	Bookings []userBookingLineResponse `json:"bookings"`
}

type userBookingLineResponse struct {
	BookingID        string  `json:"booking_id"`
	Status           string  `json:"status"`
	Currency         string  `json:"currency"`
	TransportPrice   string  `json:"transport_price"`
	Commission       string  `json:"commission"`
	InsurancePremium *string `json:"insurance_premium,omitempty"`
	Total            string  `json:"total"`
	TravelerNet      string  `json:"traveler_net"`
}

// UserFinancials serves the caller's dashboard totals, bucketed by
// settlement phase for the requested side.
func UserFinancials(svc SummaryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "financials service unavailable"))
			return
		}

		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := financials.PartyRole(r.URL.Query().Get("role"))
		totals, err := svc.AggregateUserFinancials(r.Context(), actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := userFinancialsResponse{
			UserID:         totals.UserID.String(),
			Role:           string(totals.Role),
			TotalToReceive: totals.TotalToReceive.Round(2).String(),
			AwaitingPickup: totals.AwaitingPickup.Round(2).String(),
			InTransit:      totals.InTransit.Round(2).String(),
			TotalBlocked:   totals.TotalBlocked.Round(2).String(),
			TotalPaid:      totals.TotalPaid.Round(2).String(),
			Bookings:       make([]userBookingLineResponse, 0, len(totals.Bookings)),
		}
		for _, line := range totals.Bookings {
			item := userBookingLineResponse{
				BookingID:      line.BookingID.String(),
				Status:         string(line.Status),
				Currency:       string(line.Currency),
				TransportPrice: line.TransportPrice.Round(2).String(),
				Commission:     line.Commission.Round(2).String(),
				Total:          line.Total.Round(2).String(),
				TravelerNet:    line.TravelerNet.Round(2).String(),
			}
			if line.InsurancePremium != nil {
				premium := line.InsurancePremium.Round(2).String()
				item.InsurancePremium = &premium
			}
			resp.Bookings = append(resp.Bookings, item)
		}

		responses.WriteSuccess(w, resp)
	}
}
