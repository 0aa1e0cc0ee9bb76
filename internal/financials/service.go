package financials

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Viewer identifies who is asking for a summary.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ServiceParams groups dependencies for the financials service.
type ServiceParams struct {
	Bookings bookings.Repository
	Ledger   ledger.Repository
}

// Service serves per-booking financial summaries.
type Service struct {
	bookings bookings.Repository
	ledger   ledger.Repository
}

// NewService builds a financials service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Bookings == nil {
		return nil, errors.New("bookings repository is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger repository is required")
	}
	return &Service{bookings: params.Bookings, ledger: params.Ledger}, nil
}

// GetBookingSummary returns the financial summary for a booking. Only the
// requester, the traveler, and admins may see it.
func (s *Service) GetBookingSummary(ctx context.Context, bookingID uuid.UUID, viewer Viewer) (*Summary, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canView(booking, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this booking")
	}

	hold, err := s.ledger.FindSucceededHoldByBookingID(ctx, bookingID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	transfers, err := s.ledger.ListTransfersByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	summary := BuildSummary(booking, hold, transfers)
	return &summary, nil
}

// AggregateUserFinancials buckets the user's bookings by settlement phase
// for the given side. The projection is read-only, so concurrent calls are
// always safe.
func (s *Service) AggregateUserFinancials(ctx context.Context, userID uuid.UUID, role PartyRole) (*UserFinancials, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be traveler or requester")
	}

	var (
		userBookings []models.Booking
		err          error
	)
	switch role {
	case PartyTraveler:
		userBookings, err = s.bookings.ListByTraveler(ctx, userID)
	case PartyRequester:
		userBookings, err = s.bookings.ListByRequester(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	result := AggregateUser(userID, role, userBookings)
	return &result, nil
}

func canView(booking *models.Booking, viewer Viewer) bool {
	if viewer.Role == enums.UserRoleAdmin {
		return true
	}
	return viewer.UserID == booking.RequesterID || viewer.UserID == booking.TravelerID
}

func isNotFound(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeNotFound
}
