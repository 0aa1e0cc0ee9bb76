package payout

import (
	"fmt"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Registry resolves the rail for a payout account's method.
type Registry struct {
	rails map[enums.PayoutMethod]Rail
}

// NewRegistry indexes the provided rails by payout method.
func NewRegistry(rails ...Rail) (*Registry, error) {
	indexed := make(map[enums.PayoutMethod]Rail, len(rails))
	for _, rail := range rails {
		if rail == nil {
			return nil, fmt.Errorf("nil rail")
		}
		if _, exists := indexed[rail.Method()]; exists {
			return nil, fmt.Errorf("duplicate rail for method %s", rail.Method())
		}
		indexed[rail.Method()] = rail
	}
	return &Registry{rails: indexed}, nil
}

// ForAccount returns the rail matching the account's payout method. A
// missing account or unknown method reads as "nothing configured".
func (r *Registry) ForAccount(account *models.PayoutAccount) (Rail, error) {
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no payout account configured").
			WithReason(ReasonWalletNotConfigured)
	}
	rail, ok := r.rails[account.Method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition,
			fmt.Sprintf("no rail for payout method %s", account.Method)).
			WithReason(ReasonWalletNotConfigured)
	}
	return rail, nil
}
