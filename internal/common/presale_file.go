package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fraction-presale-go/internal/presale"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v2"
)

// PresaleFile is the YAML definition of a presale to initialize
type PresaleFile struct {
	Presale      string `yaml:"presale"`
	Authority    string `yaml:"authority"`
	FractionMint string `yaml:"fraction_mint"`
	PaymentMint  string `yaml:"payment_mint"`
	AccessMint   string `yaml:"access_mint"`
	Price        uint64 `yaml:"price"`
	MaxAmount    uint64 `yaml:"max_amount"`
	PresaleEnd   string `yaml:"presale_end"`
	VestingEnd   string `yaml:"vesting_end"`
}

func LoadPresaleFile(presaleFile string) (*PresaleFile, error) {
	var presalePath string
	if filepath.IsAbs(presaleFile) {
		presalePath = presaleFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		presalePath = filepath.Join(wd, presaleFile)
	}

	data, err := os.ReadFile(presalePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", presaleFile, err)
	}

	var def PresaleFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", presaleFile, err)
	}

	for field, value := range map[string]string{
		"authority":     def.Authority,
		"fraction_mint": def.FractionMint,
		"payment_mint":  def.PaymentMint,
		"access_mint":   def.AccessMint,
		"presale_end":   def.PresaleEnd,
		"vesting_end":   def.VestingEnd,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s missing %s", presaleFile, field)
		}
	}

	return &def, nil
}

// Params converts the definition into engine parameters
func (f *PresaleFile) Params() (presale.InitializeParams, error) {
	var params presale.InitializeParams
	var err error

	if f.Presale != "" {
		if params.Presale, err = ParseKey("presale", f.Presale); err != nil {
			return params, err
		}
	}
	if params.Authority, err = ParseKey("authority", f.Authority); err != nil {
		return params, err
	}
	if params.FractionMint, err = ParseKey("fraction_mint", f.FractionMint); err != nil {
		return params, err
	}
	if params.PaymentMint, err = ParseKey("payment_mint", f.PaymentMint); err != nil {
		return params, err
	}
	if params.AccessMint, err = ParseKey("access_mint", f.AccessMint); err != nil {
		return params, err
	}
	if params.PresaleEnd, err = ParseTime("presale_end", f.PresaleEnd); err != nil {
		return params, err
	}
	if params.VestingEnd, err = ParseTime("vesting_end", f.VestingEnd); err != nil {
		return params, err
	}
	params.Price = f.Price
	params.MaxAmount = f.MaxAmount
	return params, nil
}

// ParseKey decodes a base58 public key, naming the field on failure
func ParseKey(field, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return key, nil
}

// ParseTime accepts RFC 3339 timestamps or a Go duration relative to now ("72h")
func ParseTime(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return time.Now().Add(d), nil
	}
	return time.Time{}, fmt.Errorf("invalid %s %q: want RFC 3339 time or duration", field, value)
}
