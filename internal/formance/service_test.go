package formance

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"fraction-presale-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"USDC/6": {Input: big.NewInt(1_000_000), Output: big.NewInt(250_000)},
		"FRAC/0": {Balance: big.NewInt(42)},
	}
	if got := volumeBalance(vols, "USDC/6"); got.Int64() != 750_000 {
		t.Errorf("USDC balance = %s, want 750000", got.String())
	}
	if got := volumeBalance(vols, "FRAC/0"); got.Int64() != 42 {
		t.Errorf("FRAC balance = %s, want 42", got.String())
	}
	if got := volumeBalance(vols, "SOL/9"); got != nil {
		t.Errorf("expected nil for unknown asset, got %s", got.String())
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isNotFoundError(nil) {
		t.Error("nil should not be a not-found error")
	}
}

func TestBuildScript(t *testing.T) {
	posting := models.LedgerPosting{
		Reference: "op-1",
		Timestamp: time.Unix(1_700_000_000, 0),
		Legs: []models.PostingLeg{
			{Kind: "mint_to", Asset: "FRAC/0", Destination: "Treasury111", Amount: 500},
			{Kind: "purchase_payment", Asset: "USDC/6", Source: "Buyer111", Destination: "Pay111", Amount: 1_250_000},
		},
	}

	script, vars := buildScript(posting)

	if strings.Count(script, "send [") != 2 {
		t.Fatalf("expected 2 send statements, got script:\n%s", script)
	}
	if !strings.Contains(script, `set_tx_meta("operation_ref", $reference)`) {
		t.Error("script should tag the operation reference")
	}

	want := map[string]string{
		"reference":     "op-1",
		"asset_0":       "FRAC/0",
		"amount_0":      "500",
		"source_0":      "world",
		"destination_0": "tokens:Treasury111",
		"kind_0":        "mint_to",
		"asset_1":       "USDC/6",
		"amount_1":      "1250000",
		"source_1":      "tokens:Buyer111",
		"destination_1": "tokens:Pay111",
		"kind_1":        "purchase_payment",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("vars[%q] = %q, want %q", k, vars[k], v)
		}
	}
	if len(vars) != len(want) {
		t.Errorf("expected %d vars, got %d", len(want), len(vars))
	}
}

func TestBuildScript_MaxAmount(t *testing.T) {
	posting := models.LedgerPosting{
		Reference: "op-max",
		Legs: []models.PostingLeg{
			{Kind: "mint_to", Asset: "FRAC/0", Destination: "A", Amount: ^uint64(0)},
		},
	}
	_, vars := buildScript(posting)
	if vars["amount_0"] != "18446744073709551615" {
		t.Errorf("amount_0 = %q", vars["amount_0"])
	}
}
