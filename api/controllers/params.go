package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/middleware"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

func parseBookingID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "bookingId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking id").WithDetails(map[string]any{"field": "bookingId"})
	}
	return id, nil
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	return id, nil
}
