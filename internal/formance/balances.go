package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// GetAccountBalance returns the mirrored raw balance of a token account for one asset.
// Accounts the ledger has never seen report zero.
func (s *Service) GetAccountBalance(ctx context.Context, address, asset string) (uint64, error) {
	zap.L().Debug("Getting mirrored balance from Formance",
		zap.String("address", address), zap.String("asset", asset))

	vols, err := s.getAccountVolumes(ctx, tokenAccount(address))
	if err != nil {
		return 0, err
	}
	bal := volumeBalance(vols, asset)
	if bal == nil {
		return 0, nil
	}
	if bal.Sign() < 0 || !bal.IsUint64() {
		return 0, fmt.Errorf("mirrored balance %s for %s is out of range", bal.String(), address)
	}
	return bal.Uint64(), nil
}

// ---------- helpers ----------

// getAccountVolumes fetches volumes for a single account via GetAccount.
func (s *Service) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account volumes for %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}
