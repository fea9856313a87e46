package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestBookIssueAndBurn(t *testing.T) {
	book := NewBook("uasset")

	t.Run("issue credits balance and supply", func(t *testing.T) {
		require.NoError(t, book.Issue("alice", sdkmath.NewInt(1000)))
		require.Equal(t, sdkmath.NewInt(1000), book.BalanceOf("alice"))
		require.Equal(t, sdkmath.NewInt(1000), book.TotalSupply())
	})

	t.Run("burn debits balance and supply", func(t *testing.T) {
		require.NoError(t, book.Burn("alice", sdkmath.NewInt(400)))
		require.Equal(t, sdkmath.NewInt(600), book.BalanceOf("alice"))
		require.Equal(t, sdkmath.NewInt(600), book.TotalSupply())
	})

	t.Run("burn beyond balance fails", func(t *testing.T) {
		err := book.Burn("alice", sdkmath.NewInt(601))
		require.ErrorIs(t, err, ErrInsufficientBalance)
		require.Equal(t, sdkmath.NewInt(600), book.BalanceOf("alice"))
	})

	t.Run("empty account rejected", func(t *testing.T) {
		require.ErrorIs(t, book.Issue("", sdkmath.NewInt(1)), ErrInvalidAccount)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		require.ErrorIs(t, book.Issue("alice", sdkmath.NewInt(-1)), ErrInvalidAmount)
	})

	t.Run("nil amount rejected", func(t *testing.T) {
		require.ErrorIs(t, book.Issue("alice", sdkmath.Int{}), ErrInvalidAmount)
	})
}

func TestBookTransfer(t *testing.T) {
	book := NewBook("uasset")
	require.NoError(t, book.Issue("alice", sdkmath.NewInt(1000)))

	t.Run("moves balance without changing supply", func(t *testing.T) {
		require.NoError(t, book.Transfer("alice", "bob", sdkmath.NewInt(300)))
		require.Equal(t, sdkmath.NewInt(700), book.BalanceOf("alice"))
		require.Equal(t, sdkmath.NewInt(300), book.BalanceOf("bob"))
		require.Equal(t, sdkmath.NewInt(1000), book.TotalSupply())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := book.Transfer("bob", "alice", sdkmath.NewInt(301))
		require.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("empty recipient", func(t *testing.T) {
		err := book.Transfer("alice", "", sdkmath.NewInt(1))
		require.ErrorIs(t, err, ErrInvalidAccount)
	})
}

func TestBookAllowances(t *testing.T) {
	book := NewBook("uvshare")
	require.NoError(t, book.Issue("owner", sdkmath.NewInt(500)))

	t.Run("approve sets the allowance", func(t *testing.T) {
		require.NoError(t, book.Approve("owner", "spender", sdkmath.NewInt(200)))
		require.Equal(t, sdkmath.NewInt(200), book.Allowance("owner", "spender"))
	})

	t.Run("spend reduces the allowance", func(t *testing.T) {
		require.NoError(t, book.SpendAllowance("owner", "spender", sdkmath.NewInt(150)))
		require.Equal(t, sdkmath.NewInt(50), book.Allowance("owner", "spender"))
	})

	t.Run("spend beyond the allowance fails", func(t *testing.T) {
		err := book.SpendAllowance("owner", "spender", sdkmath.NewInt(51))
		require.ErrorIs(t, err, ErrInsufficientAllowance)
		require.Equal(t, sdkmath.NewInt(50), book.Allowance("owner", "spender"))
	})

	t.Run("unapproved spender has zero allowance", func(t *testing.T) {
		require.True(t, book.Allowance("owner", "stranger").IsZero())
		err := book.SpendAllowance("owner", "stranger", sdkmath.NewInt(1))
		require.ErrorIs(t, err, ErrInsufficientAllowance)
	})
}

func TestBookCoinOf(t *testing.T) {
	book := NewBook("uasset")
	require.NoError(t, book.Issue("alice", sdkmath.NewInt(42)))

	coin := book.CoinOf("alice")
	require.Equal(t, "uasset", coin.Denom)
	require.Equal(t, sdkmath.NewInt(42), coin.Amount)
}

func TestCustody(t *testing.T) {
	book := NewBook("uasset")
	custody := NewCustody(book, "vault-1-custody")
	require.NoError(t, book.Issue("alice", sdkmath.NewInt(1000)))

	t.Run("transfer in pulls from the payer", func(t *testing.T) {
		require.NoError(t, custody.TransferIn("alice", sdkmath.NewInt(600)))
		require.Equal(t, sdkmath.NewInt(600), custody.Balance())
		require.Equal(t, sdkmath.NewInt(400), book.BalanceOf("alice"))
	})

	t.Run("transfer out pays the receiver", func(t *testing.T) {
		require.NoError(t, custody.TransferOut("bob", sdkmath.NewInt(250)))
		require.Equal(t, sdkmath.NewInt(350), custody.Balance())
		require.Equal(t, sdkmath.NewInt(250), book.BalanceOf("bob"))
	})

	t.Run("transfer out beyond custody fails", func(t *testing.T) {
		err := custody.TransferOut("bob", sdkmath.NewInt(351))
		require.ErrorIs(t, err, ErrInsufficientBalance)
		require.Equal(t, sdkmath.NewInt(350), custody.Balance())
	})

	t.Run("denoms come from the book", func(t *testing.T) {
		require.Equal(t, "uasset", custody.Denom())
		coin := custody.Coin()
		require.Equal(t, "uasset", coin.Denom)
		require.Equal(t, sdkmath.NewInt(350), coin.Amount)
	})
}
