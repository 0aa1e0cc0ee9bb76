package controllers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/responses"
	"github.com/AmielDylan/sendbox-sub002/api/validators"
	"github.com/AmielDylan/sendbox-sub002/internal/admin"
	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

// AdminService is the override surface exposed to back-office tooling.
type AdminService interface {
	MarkDisputed(ctx context.Context, actor admin.Actor, bookingID uuid.UUID, reason string) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, actor admin.Actor, bookingID uuid.UUID, note string) error
	ForceRefund(ctx context.Context, actor admin.Actor, bookingID uuid.UUID, reason string) error
	ManualRelease(ctx context.Context, actor admin.Actor, bookingID uuid.UUID, reason string) (*settlement.ReleaseResult, error)
	AuditTrail(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type adminActionRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type resolveDisputeRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type disputeResponse struct {
	ID         string     `json:"id"`
	BookingID  string     `json:"booking_id"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type releaseResponse struct {
	BookingID          string `json:"booking_id"`
	Released           bool   `json:"released"`
	AlreadyTransferred bool   `json:"already_transferred"`
	TransferID         string `json:"transfer_id,omitempty"`
	Status             string `json:"status,omitempty"`
}

type auditEntryResponse struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	Action    string          `json:"action"`
	TargetID  string          `json:"target_id"`
	Reason    string          `json:"reason"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func actorFromRequest(r *http.Request) (admin.Actor, error) {
	actorID, err := callerID(r)
	if err != nil {
		return admin.Actor{}, err
	}
	ip := r.RemoteAddr
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		ip = host
	}
	return admin.Actor{
		UserID:    actorID,
		IP:        ip,
		UserAgent: r.UserAgent(),
	}, nil
}

// AdminMarkDisputed freezes settlement for a booking.
func AdminMarkDisputed(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adminActionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.MarkDisputed(r.Context(), actor, bookingID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, disputeResponse{
			ID:         dispute.ID.String(),
			BookingID:  dispute.BookingID.String(),
			Status:     string(dispute.Status),
			Reason:     dispute.Reason,
			ResolvedAt: dispute.ResolvedAt,
			CreatedAt:  dispute.CreatedAt,
		})
	}
}

// AdminResolveDispute closes the open dispute and unfreezes settlement.
func AdminResolveDispute(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResolveDispute(r.Context(), actor, bookingID, req.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"booking_id": bookingID.String(), "dispute": "resolved"})
	}
}

// AdminForceRefund cancels the hold and returns the money to the requester.
func AdminForceRefund(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adminActionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ForceRefund(r.Context(), actor, bookingID, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"booking_id": bookingID.String(), "refund": "issued"})
	}
}

// AdminManualRelease forces the payout past an open dispute.
func AdminManualRelease(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adminActionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ManualRelease(r.Context(), actor, bookingID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := releaseResponse{
			BookingID:          bookingID.String(),
			Released:           result.Success,
			AlreadyTransferred: result.AlreadyTransferred,
			Status:             string(result.Status),
		}
		if result.TransferID != uuid.Nil {
			resp.TransferID = result.TransferID.String()
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminAuditTrail lists the override history for one booking, newest first.
func AdminAuditTrail(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.AuditTrail(r.Context(), bookingID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, auditEntryResponse{
				ID:        entry.ID.String(),
				ActorID:   entry.ActorID.String(),
				Action:    string(entry.Action),
				TargetID:  entry.TargetID.String(),
				Reason:    entry.Reason,
				IP:        entry.IP,
				UserAgent: entry.UserAgent,
				Metadata:  entry.Metadata,
				CreatedAt: entry.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
