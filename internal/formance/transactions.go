package formance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fraction-presale-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// worldAccount is the Formance source for newly minted tokens.
const worldAccount = "world"

// PostOperation records every leg of one committed operation as a single Formance transaction.
// The operation reference doubles as the Formance reference, so replaying an operation is a no-op.
func (s *Service) PostOperation(ctx context.Context, posting models.LedgerPosting) error {
	if len(posting.Legs) == 0 {
		return fmt.Errorf("posting %s has no legs", posting.Reference)
	}

	script, vars := buildScript(posting)
	postTx := shared.V2PostTransaction{
		Reference: strPtr(posting.Reference),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}
	if !posting.Timestamp.IsZero() {
		ts := posting.Timestamp
		postTx.Timestamp = &ts
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Operation already mirrored", zap.String("reference", posting.Reference))
			return nil
		}
		return fmt.Errorf("failed to post operation %s: %w", posting.Reference, err)
	}

	zap.L().Info("Operation mirrored to Formance",
		zap.String("reference", posting.Reference),
		zap.Int("legs", len(posting.Legs)))
	return nil
}

// buildScript renders one send statement per leg. Legs keep their order so
// each source is funded by the time it is debited.
func buildScript(posting models.LedgerPosting) (string, map[string]string) {
	var decl, body strings.Builder
	vars := map[string]string{"reference": posting.Reference}

	decl.WriteString("vars {\n")
	for i, leg := range posting.Legs {
		n := strconv.Itoa(i)
		fmt.Fprintf(&decl, "  asset $asset_%s\n  number $amount_%s\n  account $source_%s\n  account $destination_%s\n  string $kind_%s\n", n, n, n, n, n)

		source := worldAccount
		if leg.Source != "" {
			source = tokenAccount(leg.Source)
		}
		vars["asset_"+n] = leg.Asset
		vars["amount_"+n] = strconv.FormatUint(leg.Amount, 10)
		vars["source_"+n] = source
		vars["destination_"+n] = tokenAccount(leg.Destination)
		vars["kind_"+n] = leg.Kind

		fmt.Fprintf(&body, "send [$asset_%s $amount_%s] (\n  source = $source_%s\n  destination = $destination_%s\n)\n", n, n, n, n)
		fmt.Fprintf(&body, "set_tx_meta(\"leg_%s_kind\", $kind_%s)\n", n, n)
	}
	decl.WriteString("  string $reference\n}\n\n")

	body.WriteString("set_tx_meta(\"operation_ref\", $reference)\n")
	return decl.String() + body.String(), vars
}
