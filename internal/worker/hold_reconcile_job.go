package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/AmielDylan/sendbox-sub002/internal/capture"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

type pendingHoldReader interface {
	ListPendingHolds(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentHold, error)
}

type holdReconciler interface {
	ReconcileHold(ctx context.Context, bookingID uuid.UUID) (*capture.CaptureResult, error)
}

// HoldReconcileJobParams configure the hold reconciliation job.
type HoldReconcileJobParams struct {
	Logger    *logger.Logger
	Ledger    pendingHoldReader
	Capture   holdReconciler
	MinAge    time.Duration
	BatchSize int
}

// NewHoldReconcileJob builds the job that re-checks holds stuck in pending
// against the provider. A client that confirmed a payment but never called
// back leaves such a row behind.
func NewHoldReconcileJob(params HoldReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Capture == nil {
		return nil, fmt.Errorf("capture service required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &holdReconcileJob{
		logg:      params.Logger,
		ledger:    params.Ledger,
		capture:   params.Capture,
		minAge:    minAge,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type holdReconcileJob struct {
	logg      *logger.Logger
	ledger    pendingHoldReader
	capture   holdReconciler
	minAge    time.Duration
	batchSize int
	now       func() time.Time
}

func (j *holdReconcileJob) Name() string { return "hold-reconcile" }

func (j *holdReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.minAge)
	holds, err := j.ledger.ListPendingHolds(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query pending holds: %w", err)
	}

	var errs []error
	settled := 0
	for _, hold := range holds {
		result, err := j.capture.ReconcileHold(ctx, hold.BookingID)
		if err != nil {
			errs = append(errs, fmt.Errorf("hold %s: %w", hold.ID, err))
			continue
		}
		if result.Booking != nil && result.Booking.PaidAt != nil {
			settled++
		}
	}

	j.logg.Info(ctx, fmt.Sprintf("hold-reconcile: %d pending holds, %d settled", len(holds), settled))
	return multierr.Combine(errs...)
}
