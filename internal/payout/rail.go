package payout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// Machine-readable refusal reasons surfaced by rail validation and the
// release guards. Clients branch on these instead of parsing messages.
const (
	ReasonDisputeOpen                = "dispute_open"
	ReasonPaymentNotCaptured         = "payment_not_captured"
	ReasonPayoutsNotEnabled          = "payouts_not_enabled"
	ReasonWalletNotVerified          = "wallet_not_verified"
	ReasonWalletNotConfigured        = "wallet_not_configured"
	ReasonWalletCurrencyNotSupported = "wallet_currency_not_supported"
	ReasonCurrencyNotSupported       = "currency_not_supported"
	ReasonInvalidTransferAmount      = "invalid_transfer_amount"
)

// TransferRequest describes one payout to push over a rail. IdempotencyKey
// is deterministic per booking so provider-level retries collapse into a
// single transfer.
type TransferRequest struct {
	BookingID      uuid.UUID
	Account        *models.PayoutAccount
	Amount         decimal.Decimal
	Currency       enums.Currency
	IdempotencyKey string
}

// TransferResult is the provider's acknowledgement of a sent transfer.
type TransferResult struct {
	ProviderTransferID string
	Status             enums.TransferStatus
}

// Rail is one payout channel. Validate must be free of side effects (reads
// are fine, writes are not) so the release orchestrator can run it as a
// guard before any money moves.
type Rail interface {
	Provider() enums.PayoutProvider
	Method() enums.PayoutMethod
	Validate(ctx context.Context, account *models.PayoutAccount, currency enums.Currency) error
	Send(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// MinorUnits converts a decimal amount to the provider's integer
// representation: cents for EUR, whole francs for XOF (a zero-decimal
// currency).
func MinorUnits(amount decimal.Decimal, currency enums.Currency) int64 {
	if currency == enums.CurrencyXOF {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
