package payout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	pkgstripe "github.com/AmielDylan/sendbox-sub002/pkg/stripe"
)

// BankRail pushes transfers to a traveler's custodial Stripe account. EUR
// only; the connected account must have payouts enabled at the provider,
// not just in our copy of the flag.
type BankRail struct {
	ops pkgstripe.TransferOperations
}

// NewBankRail builds the Stripe-backed bank rail.
func NewBankRail(ops pkgstripe.TransferOperations) (*BankRail, error) {
	if ops == nil {
		return nil, fmt.Errorf("stripe transfer operations required")
	}
	return &BankRail{ops: ops}, nil
}

func (r *BankRail) Provider() enums.PayoutProvider {
	return enums.PayoutProviderStripe
}

func (r *BankRail) Method() enums.PayoutMethod {
	return enums.PayoutMethodBank
}

func (r *BankRail) Validate(ctx context.Context, account *models.PayoutAccount, currency enums.Currency) error {
	if account == nil || account.StripeAccountID == nil || *account.StripeAccountID == "" {
		return pkgerrors.New(pkgerrors.CodePrecondition, "bank payout account not configured").
			WithReason(ReasonPayoutsNotEnabled)
	}
	if currency != enums.CurrencyEUR {
		return pkgerrors.New(pkgerrors.CodePrecondition, "bank rail supports EUR only").
			WithReason(ReasonCurrencyNotSupported)
	}
	if !account.PayoutsEnabled {
		return pkgerrors.New(pkgerrors.CodePrecondition, "payouts disabled for account").
			WithReason(ReasonPayoutsNotEnabled)
	}

	// The local flag can go stale; confirm against the provider. A read
	// keeps this guard side-effect free.
	remote, err := r.ops.GetAccount(ctx, *account.StripeAccountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching stripe account")
	}
	if !remote.PayoutsEnabled {
		return pkgerrors.New(pkgerrors.CodePrecondition, "payouts disabled at provider").
			WithReason(ReasonPayoutsNotEnabled)
	}
	return nil
}

func (r *BankRail) Send(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(MinorUnits(req.Amount, req.Currency)),
		Currency:    stripe.String(req.Currency.Lower()),
		Destination: stripe.String(*req.Account.StripeAccountID),
		TransferGroup: stripe.String(
			fmt.Sprintf("booking_%s", req.BookingID),
		),
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("booking_id", req.BookingID.String())

	created, err := r.ops.CreateTransfer(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe transfer")
	}
	return &TransferResult{
		ProviderTransferID: created.ID,
		Status:             enums.TransferStatusPaid,
	}, nil
}
