package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

type pendingTransferReader interface {
	ListPendingTransfers(ctx context.Context, olderThan time.Time, limit int) ([]models.Transfer, error)
}

type transferReconciler interface {
	ReconcileTransfer(ctx context.Context, bookingID uuid.UUID) (*settlement.ReleaseResult, error)
}

// TransferReconcileJobParams configure the transfer reconciliation job.
type TransferReconcileJobParams struct {
	Logger     *logger.Logger
	Ledger     pendingTransferReader
	Settlement transferReconciler
	MinAge     time.Duration
	BatchSize  int
}

// NewTransferReconcileJob builds the job that re-checks transfers stuck in
// pending against the provider. Wallet payouts settle asynchronously, so a
// released booking stays unstamped until the payout lands.
func NewTransferReconcileJob(params TransferReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &transferReconcileJob{
		logg:       params.Logger,
		ledger:     params.Ledger,
		settlement: params.Settlement,
		minAge:     minAge,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

type transferReconcileJob struct {
	logg       *logger.Logger
	ledger     pendingTransferReader
	settlement transferReconciler
	minAge     time.Duration
	batchSize  int
	now        func() time.Time
}

func (j *transferReconcileJob) Name() string { return "transfer-reconcile" }

func (j *transferReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.minAge)
	transfers, err := j.ledger.ListPendingTransfers(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query pending transfers: %w", err)
	}

	var errs []error
	landed := 0
	for _, transfer := range transfers {
		result, err := j.settlement.ReconcileTransfer(ctx, transfer.BookingID)
		if err != nil {
			errs = append(errs, fmt.Errorf("transfer %s: %w", transfer.ID, err))
			continue
		}
		if result.Status == enums.TransferStatusPaid {
			landed++
		}
	}

	j.logg.Info(ctx, fmt.Sprintf("transfer-reconcile: %d pending transfers, %d landed", len(transfers), landed))
	return multierr.Combine(errs...)
}
