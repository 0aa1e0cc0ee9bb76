package payout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/fedapay"
)

type walletSender interface {
	CreatePayout(ctx context.Context, req fedapay.PayoutRequest) (*fedapay.Payout, error)
}

// WalletRail pushes transfers to a traveler's mobile-money wallet through
// FedaPay. XOF only; the operator and phone number must be verified before
// any money moves.
type WalletRail struct {
	client walletSender
}

// NewWalletRail builds the FedaPay-backed mobile-money rail.
func NewWalletRail(client walletSender) (*WalletRail, error) {
	if client == nil {
		return nil, fmt.Errorf("fedapay client required")
	}
	return &WalletRail{client: client}, nil
}

func (r *WalletRail) Provider() enums.PayoutProvider {
	return enums.PayoutProviderFedapay
}

func (r *WalletRail) Method() enums.PayoutMethod {
	return enums.PayoutMethodMobileWallet
}

func (r *WalletRail) Validate(_ context.Context, account *models.PayoutAccount, currency enums.Currency) error {
	if account == nil ||
		account.WalletOperator == nil || *account.WalletOperator == "" ||
		account.WalletPhone == nil || *account.WalletPhone == "" {
		return pkgerrors.New(pkgerrors.CodePrecondition, "mobile wallet not configured").
			WithReason(ReasonWalletNotConfigured)
	}
	if !account.WalletVerified {
		return pkgerrors.New(pkgerrors.CodePrecondition, "mobile wallet not verified").
			WithReason(ReasonWalletNotVerified)
	}
	if currency != enums.CurrencyXOF {
		return pkgerrors.New(pkgerrors.CodePrecondition, "mobile wallet supports XOF only").
			WithReason(ReasonWalletCurrencyNotSupported)
	}
	return nil
}

func (r *WalletRail) Send(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payout, err := r.client.CreatePayout(ctx, fedapay.PayoutRequest{
		Amount:         MinorUnits(req.Amount, req.Currency),
		Currency:       string(req.Currency),
		Operator:       *req.Account.WalletOperator,
		PhoneNumber:    *req.Account.WalletPhone,
		Reference:      fmt.Sprintf("booking_%s", req.BookingID),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating fedapay payout")
	}

	return &TransferResult{
		ProviderTransferID: strconv.FormatInt(payout.ID, 10),
		Status:             NormalizeWalletStatus(payout.Status),
	}, nil
}

// NormalizeWalletStatus maps a FedaPay payout status onto the ledger's
// transfer lifecycle. Anything not terminally settled or failed stays
// pending so the reconcile job picks it up later.
func NormalizeWalletStatus(providerStatus string) enums.TransferStatus {
	switch providerStatus {
	case "completed", "sent":
		return enums.TransferStatusPaid
	case "failed", "cancelled":
		return enums.TransferStatusFailed
	default:
		return enums.TransferStatusPending
	}
}
