package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/internal/capture"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

type testCaptureService struct {
	captureFn   func(ctx context.Context, bookingID, actorID uuid.UUID) (*capture.CaptureResult, error)
	reconcileFn func(ctx context.Context, bookingID uuid.UUID) (*capture.CaptureResult, error)
}

func (s *testCaptureService) CaptureBookingPayment(ctx context.Context, bookingID, actorID uuid.UUID) (*capture.CaptureResult, error) {
	if s.captureFn != nil {
		return s.captureFn(ctx, bookingID, actorID)
	}
	return nil, nil
}

func (s *testCaptureService) ReconcileHold(ctx context.Context, bookingID uuid.UUID) (*capture.CaptureResult, error) {
	if s.reconcileFn != nil {
		return s.reconcileFn(ctx, bookingID)
	}
	return nil, nil
}

func TestCapturePaymentSuccess(t *testing.T) {
	bookingID := uuid.New()
	requesterID := uuid.New()
	svc := &testCaptureService{
		captureFn: func(_ context.Context, bid, aid uuid.UUID) (*capture.CaptureResult, error) {
			if bid != bookingID {
				t.Fatalf("unexpected booking %s", bid)
			}
			if aid != requesterID {
				t.Fatalf("unexpected actor %s", aid)
			}
			return &capture.CaptureResult{
				Booking: &models.Booking{ID: bookingID},
				Hold: &models.PaymentHold{
					ID:          uuid.New(),
					BookingID:   bookingID,
					AmountHeld:  decimal.NewFromInt(86),
					PlatformFee: decimal.NewFromInt(36),
					Currency:    enums.CurrencyEUR,
					Status:      enums.HoldStatusSucceeded,
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/capture", nil)
	req = addRouteParam(req, "bookingId", bookingID.String())
	req = asUser(req, requesterID, "user")
	resp := httptest.NewRecorder()

	CapturePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data captureResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.AmountHeld != "86" {
		t.Fatalf("unexpected amount held %s", envelope.Data.AmountHeld)
	}
	if envelope.Data.HoldStatus != string(enums.HoldStatusSucceeded) {
		t.Fatalf("unexpected hold status %s", envelope.Data.HoldStatus)
	}
	if envelope.Data.AlreadyCaptured {
		t.Fatal("fresh capture reported as already captured")
	}
}

func TestCapturePaymentAlreadyCapturedReturnsOK(t *testing.T) {
	bookingID := uuid.New()
	svc := &testCaptureService{
		captureFn: func(_ context.Context, bid, _ uuid.UUID) (*capture.CaptureResult, error) {
			return &capture.CaptureResult{
				Booking:         &models.Booking{ID: bid},
				Hold:            &models.PaymentHold{ID: uuid.New(), Status: enums.HoldStatusSucceeded, Currency: enums.CurrencyEUR},
				AlreadyCaptured: true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/capture", nil)
	req = addRouteParam(req, "bookingId", bookingID.String())
	req = asUser(req, uuid.New(), "user")
	resp := httptest.NewRecorder()

	CapturePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCapturePaymentStateConflictMaps422(t *testing.T) {
	bookingID := uuid.New()
	svc := &testCaptureService{
		captureFn: func(_ context.Context, _, _ uuid.UUID) (*capture.CaptureResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is pending, payment cannot be captured")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/capture", nil)
	req = addRouteParam(req, "bookingId", bookingID.String())
	req = asUser(req, uuid.New(), "user")
	resp := httptest.NewRecorder()

	CapturePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCapturePaymentRequiresAuth(t *testing.T) {
	bookingID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/capture", nil)
	req = addRouteParam(req, "bookingId", bookingID.String())
	resp := httptest.NewRecorder()

	CapturePayment(&testCaptureService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestReconcilePayment(t *testing.T) {
	bookingID := uuid.New()
	called := false
	svc := &testCaptureService{
		reconcileFn: func(_ context.Context, bid uuid.UUID) (*capture.CaptureResult, error) {
			called = true
			if bid != bookingID {
				t.Fatalf("unexpected booking %s", bid)
			}
			return &capture.CaptureResult{
				Booking:         &models.Booking{ID: bid},
				Hold:            &models.PaymentHold{ID: uuid.New(), Status: enums.HoldStatusSucceeded, Currency: enums.CurrencyEUR},
				AlreadyCaptured: true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/capture/reconcile", nil)
	req = addRouteParam(req, "bookingId", bookingID.String())
	req = asUser(req, uuid.New(), "user")
	resp := httptest.NewRecorder()

	ReconcilePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected reconcile called")
	}
}
