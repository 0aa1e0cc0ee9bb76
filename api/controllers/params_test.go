package controllers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/api/middleware"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asUser(req *http.Request, userID uuid.UUID, role string) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestParseBookingIDRejectsGarbage(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/bookings/not-a-uuid", nil)
	req = addRouteParam(req, "bookingId", "not-a-uuid")
	if _, err := parseBookingID(req); err == nil {
		t.Fatal("expected error for malformed booking id")
	}
}

func TestCallerIDRequiresAuthContext(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/bookings", nil)
	if _, err := callerID(req); err == nil {
		t.Fatal("expected error without authenticated user")
	}
}
