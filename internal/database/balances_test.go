package database

import (
	"context"
	"testing"

	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
)

func TestGetTransferHistory_NewestFirst(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	m := createTestMint(t, service, "USDC")
	alice := solana.NewWallet().PublicKey()
	aliceAccount := createTestAccount(t, service, m.address, alice)
	bobAccount := createTestAccount(t, service, m.address, solana.NewWallet().PublicKey())
	mintTestTokens(t, service, m, aliceAccount, 100)

	for _, ref := range []string{"op-1", "op-2", "op-3"} {
		err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
			_, err := tx.Transfer(ctx, store.TransferParams{
				Reference: ref, Kind: "payment", Mint: m.address,
				Source: aliceAccount, Destination: bobAccount, Authority: alice, Amount: 10,
			})
			return err
		})
		if err != nil {
			t.Fatalf("Transfer %s failed: %v", ref, err)
		}
	}

	history, err := service.GetTransferHistory(ctx, aliceAccount, 2, 0)
	if err != nil {
		t.Fatalf("GetTransferHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(history))
	}
	if history[0].Reference != "op-3" || history[1].Reference != "op-2" {
		t.Errorf("Expected newest first, got %s, %s", history[0].Reference, history[1].Reference)
	}

	page, err := service.GetTransferHistory(ctx, aliceAccount, 10, 2)
	if err != nil {
		t.Fatalf("GetTransferHistory failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 transfers on second page, got %d", len(page))
	}
	if page[1].Kind != TransferKindMintTo || !page[1].Source.IsZero() {
		t.Errorf("Expected oldest transfer to be the mint, got %+v", page[1])
	}
}

func TestReconcileBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	m := createTestMint(t, service, "USDC")
	alice := solana.NewWallet().PublicKey()
	aliceAccount := createTestAccount(t, service, m.address, alice)
	bobAccount := createTestAccount(t, service, m.address, solana.NewWallet().PublicKey())
	mintTestTokens(t, service, m, aliceAccount, 1_000)

	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		_, err := tx.Transfer(ctx, store.TransferParams{
			Reference: "op-1", Kind: "payment", Mint: m.address,
			Source: aliceAccount, Destination: bobAccount, Authority: alice, Amount: 250,
		})
		return err
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	for _, account := range []solana.PublicKey{aliceAccount, bobAccount} {
		if err := service.ReconcileBalance(ctx, account); err != nil {
			t.Errorf("ReconcileBalance(%s) failed: %v", account, err)
		}
	}

	// Tamper with the hot balance; reconciliation must notice.
	if _, err := service.db.Exec("UPDATE token_accounts SET amount = '1' WHERE address = ?", bobAccount.String()); err != nil {
		t.Fatalf("Failed to tamper balance: %v", err)
	}
	if err := service.ReconcileBalance(ctx, bobAccount); err == nil {
		t.Error("Expected reconciliation to fail after tampering")
	}
}

func TestUnmirroredTransfers(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	m := createTestMint(t, service, "USDC")
	first := createTestAccount(t, service, m.address, solana.NewWallet().PublicKey())
	second := createTestAccount(t, service, m.address, solana.NewWallet().PublicKey())
	mintTestTokens(t, service, m, first, 5)
	mintTestTokens(t, service, m, second, 7)

	pending, err := service.ListUnmirroredTransfers(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnmirroredTransfers failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending transfers, got %d", len(pending))
	}
	if pending[0].Amount != 5 {
		t.Errorf("Expected oldest transfer first, got amount %d", pending[0].Amount)
	}

	if err := service.MarkMirrored(ctx, pending[0].Reference); err != nil {
		t.Fatalf("MarkMirrored failed: %v", err)
	}

	pending, err = service.ListUnmirroredTransfers(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnmirroredTransfers failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Amount != 7 {
		t.Fatalf("Expected only the second transfer pending, got %+v", pending)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0", 0, false},
		{"18446744073709551615", 18446744073709551615, false},
		{"18446744073709551616", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
