package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/responses"
	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

// DeliveryService is the slice of the settlement orchestrator the delivery
// endpoint needs.
type DeliveryService interface {
	ConfirmDelivery(ctx context.Context, bookingID, actorID uuid.UUID) (*settlement.DeliveryConfirmation, error)
}

type deliveryResponse struct {
	BookingID     string    `json:"booking_id"`
	DeliveredAt   time.Time `json:"delivered_at"`
	Released      bool      `json:"released"`
	RefusalReason string    `json:"refusal_reason,omitempty"`
	TransferID    string    `json:"transfer_id,omitempty"`
}

// ConfirmDelivery records the requester's confirmation and triggers the
// release. A refused release still confirms the delivery.
func ConfirmDelivery(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
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

		confirmation, err := svc.ConfirmDelivery(r.Context(), bookingID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := deliveryResponse{
			BookingID:     confirmation.BookingID.String(),
			DeliveredAt:   confirmation.DeliveredAt,
			Released:      confirmation.Released,
			RefusalReason: confirmation.RefusalReason,
		}
		if confirmation.TransferID != uuid.Nil {
			resp.TransferID = confirmation.TransferID.String()
		}
		responses.WriteSuccess(w, resp)
	}
}
