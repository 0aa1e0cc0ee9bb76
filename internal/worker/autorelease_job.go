package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

type releasableReader interface {
	ListAutoReleasable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Booking, error)
}

type fundsReleaser interface {
	Release(ctx context.Context, input settlement.ReleaseInput) (*settlement.ReleaseResult, error)
}

// AutoReleaseJobParams configure the auto-release job.
type AutoReleaseJobParams struct {
	Logger     *logger.Logger
	Bookings   releasableReader
	Settlement fundsReleaser
	Delay      time.Duration
	BatchSize  int
}

// NewAutoReleaseJob builds the job that releases funds for delivered
// bookings whose requester never confirmed within the grace period.
func NewAutoReleaseJob(params AutoReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings reader required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Delay <= 0 {
		return nil, fmt.Errorf("auto-release delay must be positive")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &autoReleaseJob{
		logg:       params.Logger,
		bookings:   params.Bookings,
		settlement: params.Settlement,
		delay:      params.Delay,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

type autoReleaseJob struct {
	logg       *logger.Logger
	bookings   releasableReader
	settlement fundsReleaser
	delay      time.Duration
	batchSize  int
	now        func() time.Time
}

func (j *autoReleaseJob) Name() string { return "auto-release" }

func (j *autoReleaseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.delay)
	candidates, err := j.bookings.ListAutoReleasable(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query releasable bookings: %w", err)
	}

	released := 0
	var errs []error
	for _, booking := range candidates {
		result, err := j.settlement.Release(ctx, settlement.ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonAutoRelease,
		})
		if err != nil {
			// Refusals (dispute opened meanwhile, wallet still unverified)
			// are expected; the booking stays in the queue for a later
			// cycle or an admin. Real failures are aggregated.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePrecondition {
				bookingCtx := j.logg.WithBookingID(ctx, booking.ID.String())
				j.logg.Warn(bookingCtx, fmt.Sprintf("auto-release refused: %s", pkgerrors.Reason(err)))
				continue
			}
			errs = append(errs, fmt.Errorf("booking %s: %w", booking.ID, err))
			continue
		}
		if result.Success {
			released++
		}
	}

	j.logg.Info(ctx, fmt.Sprintf("auto-release: %d candidates, %d released", len(candidates), released))
	return multierr.Combine(errs...)
}
