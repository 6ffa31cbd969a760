package presale

import (
	"context"
	"fmt"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
)

const (
	presaleSeed = "presale"
	vestingSeed = "vesting"
)

// DefaultProgramID namespaces every derived address of this engine
var DefaultProgramID = solana.MustPublicKeyFromBase58("EmcETFRC5ftDYwNn6cHB3zQioNH1z8cRSwx5MZC1BMBU")

// ControlAddress returns the address that owns a presale's treasuries
func ControlAddress(programID, presale solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(presaleSeed),
		presale.Bytes(),
		programID.Bytes(),
	}, programID)
}

// VestingAddress returns the key of the vesting record for (owner, presale).
// The record key also owns the vesting token account.
func VestingAddress(programID, owner, presale solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(vestingSeed),
		owner.Bytes(),
		presale.Bytes(),
		programID.Bytes(),
	}, programID)
}

// controlAuthority is the right to move funds out of engine-owned accounts.
// Values only come from address derivation, so callers outside this package cannot forge one.
type controlAuthority struct {
	address solana.PublicKey
	bump    uint8
}

func presaleAuthority(programID, presale solana.PublicKey) (controlAuthority, error) {
	address, bump, err := ControlAddress(programID, presale)
	if err != nil {
		return controlAuthority{}, fmt.Errorf("failed to derive control address for presale %s: %w", presale, err)
	}
	return controlAuthority{address: address, bump: bump}, nil
}

func vestingAuthority(programID, owner, presale solana.PublicKey) (controlAuthority, error) {
	address, bump, err := VestingAddress(programID, owner, presale)
	if err != nil {
		return controlAuthority{}, fmt.Errorf("failed to derive vesting address for %s: %w", owner, err)
	}
	return controlAuthority{address: address, bump: bump}, nil
}

// transfer moves tokens out of an account owned by this authority
func (c controlAuthority) transfer(ctx context.Context, tx store.LedgerTx, ref, kind string,
	mint, source, destination solana.PublicKey, amount uint64) (*models.Transfer, error) {
	return tx.Transfer(ctx, store.TransferParams{
		Reference:   ref,
		Kind:        kind,
		Mint:        mint,
		Source:      source,
		Destination: destination,
		Authority:   c.address,
		Amount:      amount,
	})
}
