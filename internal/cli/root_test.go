package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/database"
	"fraction-presale-go/internal/presale"

	"github.com/gagliardetto/solana-go"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "presale", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"mint", "create"}, {"mint", "to"}, {"account", "create"},
		{"init"}, {"add"}, {"remove"}, {"start"}, {"collect"}, {"show"},
		{"vesting", "init"}, {"vesting", "show"}, {"purchase"}, {"unlock"},
		{"balance"}, {"history"}, {"reconcile"}, {"serve"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)

	for _, name := range []string{"file", "authority", "fraction-mint", "payment-mint", "access-mint", "price", "max", "end", "vesting-end"} {
		assert.NotNil(t, initCmd.Flags().Lookup(name), "missing --%s", name)
	}
}

type cliFixture struct {
	t        *testing.T
	services *common.Services
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	service := database.NewServiceFromDB(db)
	require.NoError(t, service.InitSchema())

	return &cliFixture{t: t, services: common.NewServices(service, presale.DefaultProgramID)}
}

// exec runs one command in JSON mode and returns the exit code and decoded response
func (f *cliFixture) exec(args ...string) (int, Response, []byte) {
	f.t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand(&RootOptions{services: f.services})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--format", "json"))

	code := execute(context.Background(), cmd, &errOut)

	var resp struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(f.t, json.Unmarshal(out.Bytes(), &resp), "output: %s", out.String())
	return code, resp.Response, resp.Data
}

// run executes a command that must succeed and decodes its data into v
func (f *cliFixture) run(v interface{}, args ...string) {
	f.t.Helper()
	code, resp, data := f.exec(args...)
	require.Equal(f.t, ExitSuccess, code, "command %v failed: %+v", args, resp.Error)
	require.Equal(f.t, "ok", resp.Status)
	if v != nil {
		require.NoError(f.t, json.Unmarshal(data, v))
	}
}

func (f *cliFixture) mint(symbol, decimals string, authority solana.PublicKey) string {
	f.t.Helper()
	var out struct {
		Address string `json:"address"`
	}
	f.run(&out, "mint", "create", "--symbol", symbol, "--decimals", decimals, "--authority", authority.String())
	return out.Address
}

func (f *cliFixture) account(mint string, owner solana.PublicKey) string {
	f.t.Helper()
	var out struct {
		Address string `json:"address"`
	}
	f.run(&out, "account", "create", "--mint", mint, "--owner", owner.String())
	return out.Address
}

func (f *cliFixture) balance(account string) string {
	f.t.Helper()
	var out []struct {
		Balance string `json:"balance"`
	}
	f.run(&out, "balance", "--account", account)
	require.Len(f.t, out, 1)
	return out[0].Balance
}

func TestPresaleLifecycle(t *testing.T) {
	f := newCLIFixture(t)

	mintAuthority := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()

	fracMint := f.mint("FRAC", "0", mintAuthority)
	usdcMint := f.mint("USDC", "6", mintAuthority)
	accessMint := f.mint("ACCESS", "0", mintAuthority)

	authorityFrac := f.account(fracMint, authority)
	authorityPay := f.account(usdcMint, authority)
	buyerPay := f.account(usdcMint, buyer)
	buyerAccess := f.account(accessMint, buyer)
	buyerFrac := f.account(fracMint, buyer)

	f.run(nil, "mint", "to", "--mint", fracMint, "--to", authorityFrac, "--authority", mintAuthority.String(), "--amount", "1000000")
	f.run(nil, "mint", "to", "--mint", usdcMint, "--to", buyerPay, "--authority", mintAuthority.String(), "--amount", "100")
	f.run(nil, "mint", "to", "--mint", accessMint, "--to", buyerAccess, "--authority", mintAuthority.String(), "--amount", "1")

	// vesting already over, so the buyer can unlock right after purchasing
	var view struct {
		Key              string `json:"key"`
		FractionsForSale string `json:"fractions_for_sale"`
		FractionsSold    string `json:"fractions_sold"`
		Started          bool   `json:"started"`
	}
	f.run(&view, "init",
		"--authority", authority.String(),
		"--fraction-mint", fracMint,
		"--payment-mint", usdcMint,
		"--access-mint", accessMint,
		"--price", "100000000000000", // 0.1 USDC per fraction
		"--max", "1000",
		"--end", "1h",
		"--vesting-end=-1h")
	key := view.Key
	require.NotEmpty(t, key)

	f.run(&view, "add", "--presale", key, "--authority", authority.String(), "--account", authorityFrac, "--amount", "5000")
	assert.Equal(t, "5000", view.FractionsForSale)

	f.run(&view, "start", "--presale", key, "--authority", authority.String())
	assert.True(t, view.Started)

	f.run(nil, "vesting", "init", "--presale", key, "--owner", buyer.String())

	var purchase struct {
		Amount uint64 `json:"amount"`
		Cost   uint64 `json:"cost"`
	}
	f.run(&purchase, "purchase", "--presale", key, "--buyer", buyer.String(),
		"--payment-account", buyerPay, "--access-account", buyerAccess, "--amount", "250")
	assert.Equal(t, uint64(250), purchase.Amount)
	assert.Equal(t, uint64(25_000_000), purchase.Cost)
	assert.Equal(t, "75", f.balance(buyerPay))
	assert.Equal(t, "0", f.balance(buyerAccess))

	var vesting struct {
		Locked string `json:"locked"`
	}
	f.run(&vesting, "vesting", "show", "--presale", key, "--owner", buyer.String())
	assert.Equal(t, "250", vesting.Locked)

	var unlocked struct {
		Unlocked uint64 `json:"unlocked"`
	}
	f.run(&unlocked, "unlock", "--presale", key, "--owner", buyer.String(), "--destination", buyerFrac)
	assert.Equal(t, uint64(250), unlocked.Unlocked)
	assert.Equal(t, "250", f.balance(buyerFrac))

	var collected struct {
		Collected uint64 `json:"collected"`
	}
	f.run(&collected, "collect", "--presale", key, "--authority", authority.String(), "--destination", authorityPay)
	assert.Equal(t, uint64(25_000_000), collected.Collected)
	assert.Equal(t, "25", f.balance(authorityPay))

	f.run(&view, "show", "--presale", key)
	assert.Equal(t, "250", view.FractionsSold)
	assert.Equal(t, "4750", view.FractionsForSale)

	var reconciled struct {
		Reconciled int `json:"reconciled"`
	}
	f.run(&reconciled, "reconcile",
		"--account", authorityFrac, "--account", authorityPay, "--account", buyerPay,
		"--account", buyerAccess, "--account", buyerFrac)
	assert.Equal(t, 5, reconciled.Reconciled)

	// the access pass was consumed by the first purchase
	code, resp, _ := f.exec("purchase", "--presale", key, "--buyer", buyer.String(),
		"--payment-account", buyerPay, "--access-account", buyerAccess, "--amount", "1")
	assert.Equal(t, ExitRejected, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, presale.ErrMissingAccessToken.Code, resp.Error.Code)
	assert.Equal(t, presale.ErrMissingAccessToken.Message, resp.Error.Message)
}

func TestPurchaseUnknownPresale(t *testing.T) {
	f := newCLIFixture(t)
	code, resp, _ := f.exec("purchase", "--presale", solana.NewWallet().PublicKey().String(),
		"--buyer", solana.NewWallet().PublicKey().String(), "--amount", "1")
	assert.Equal(t, ExitFailure, code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "failed to load presale")
}

func TestInvalidFormat(t *testing.T) {
	f := newCLIFixture(t)
	var errOut bytes.Buffer
	cmd := newRootCommand(&RootOptions{services: f.services})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "--format", "yaml"})

	code := execute(context.Background(), cmd, &errOut)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut.String(), "invalid format")
}

func TestTextOutput(t *testing.T) {
	f := newCLIFixture(t)
	var out bytes.Buffer
	cmd := newRootCommand(&RootOptions{services: f.services})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"mint", "create", "--symbol", "GOLD", "--decimals", "2", "--authority", solana.NewWallet().PublicKey().String()})

	require.Equal(t, ExitSuccess, execute(context.Background(), cmd, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "Mint created")
	assert.Contains(t, out.String(), "Symbol:    GOLD")
}
