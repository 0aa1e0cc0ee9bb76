package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/responses"
	"github.com/AmielDylan/sendbox-sub002/internal/capture"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

// CaptureService is the slice of the capture orchestrator the payment
// endpoints need.
type CaptureService interface {
	CaptureBookingPayment(ctx context.Context, bookingID, actorID uuid.UUID) (*capture.CaptureResult, error)
	ReconcileHold(ctx context.Context, bookingID uuid.UUID) (*capture.CaptureResult, error)
}

type captureResponse struct {
	BookingID       string  `json:"booking_id"`
	HoldID          string  `json:"hold_id,omitempty"`
	HoldStatus      string  `json:"hold_status,omitempty"`
	AmountHeld      string  `json:"amount_held,omitempty"`
	PlatformFee     string  `json:"platform_fee,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	AlreadyCaptured bool    `json:"already_captured"`
	ClientSecret    *string `json:"client_secret,omitempty"`
}

func newCaptureResponse(result *capture.CaptureResult) captureResponse {
	resp := captureResponse{
		BookingID:       result.Booking.ID.String(),
		AlreadyCaptured: result.AlreadyCaptured,
		ClientSecret:    result.ClientSecret,
	}
	if result.Hold != nil {
		resp.HoldID = result.Hold.ID.String()
		resp.HoldStatus = string(result.Hold.Status)
		resp.AmountHeld = result.Hold.AmountHeld.Round(2).String()
		resp.PlatformFee = result.Hold.PlatformFee.Round(2).String()
		resp.Currency = string(result.Hold.Currency)
	}
	return resp
}

// CapturePayment holds the requester's funds for an accepted booking.
func CapturePayment(svc CaptureService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "capture service unavailable"))
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

		result, err := svc.CaptureBookingPayment(r.Context(), bookingID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadyCaptured {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newCaptureResponse(result))
	}
}

// ReconcilePayment re-reads the provider-side hold state and folds it into
// the local ledger. Used when the client finished confirmation out of band.
func ReconcilePayment(svc CaptureService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "capture service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReconcileHold(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCaptureResponse(result))
	}
}
