// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/tube/token"
	"github.com/stretchr/testify/require"
)

type pairFixture struct {
	chain  *token.Chain
	lord   *Lord
	dao    *MinterDAO
	cToken *token.CrosschainToken
	uToken *token.Token
	pair   *CrosschainPair
}

// newPairFixture builds a pair over tokens with the given decimals and
// registers the pair as a minter with a generous credit line.
func newPairFixture(t *testing.T, dC, dU uint8) *pairFixture {
	t.Helper()
	f := &pairFixture{chain: token.NewChain()}
	f.lord = NewLord(admin, f.chain)
	f.dao = NewMinterDAO(admin, f.lord, nil)
	f.cToken = f.chain.DeployCrosschainToken(f.dao, common.Address{}, "Crosschain Asset", "cASSET", dC)
	f.uToken = f.chain.DeployToken(admin, "Underlying Asset", "ASSET", dU)
	f.pair = NewCrosschainPair(admin, f.chain, f.cToken, f.uToken)
	require.NoError(t, f.dao.AddMinter(admin, f.pair.Address(), f.cToken.Address()))
	require.NoError(t, f.pair.IncreaseCredit(admin, big.NewInt(1_000_000)))

	require.NoError(t, f.uToken.Mint(admin, user, big.NewInt(100_000)))
	require.NoError(t, f.uToken.Approve(user, f.pair.Address(), big.NewInt(100_000)))
	require.NoError(t, f.cToken.Approve(user, f.pair.Address(), big.NewInt(100_000_000)))
	return f
}

// TestPairScaleDerivation tests scale and direction from decimals
func TestPairScaleDerivation(t *testing.T) {
	up := newPairFixture(t, 8, 6)
	require.Equal(t, ScaleUp, up.pair.ScaleType())
	require.Equal(t, big.NewInt(100), up.pair.Scale())

	down := newPairFixture(t, 6, 8)
	require.Equal(t, ScaleDown, down.pair.ScaleType())
	require.Equal(t, big.NewInt(100), down.pair.Scale())

	flat := newPairFixture(t, 18, 18)
	require.Equal(t, ScaleNone, flat.pair.ScaleType())
	require.Equal(t, big.NewInt(1), flat.pair.Scale())
}

// TestPairScaleUpRoundTrip tests deposit and withdraw when the crosschain
// side has more decimals
func TestPairScaleUpRoundTrip(t *testing.T) {
	f := newPairFixture(t, 8, 6)

	require.NoError(t, f.pair.Deposit(user, big.NewInt(50)))
	require.Equal(t, big.NewInt(5000), f.cToken.BalanceOf(user))
	require.Equal(t, big.NewInt(99_950), f.uToken.BalanceOf(user))
	require.Equal(t, big.NewInt(50), f.uToken.BalanceOf(f.pair.Address()))
	require.Equal(t, big.NewInt(999_950), f.pair.RemainingCredit())

	require.NoError(t, f.pair.WithdrawTo(user, receiver, big.NewInt(5000)))
	require.Zero(t, f.cToken.BalanceOf(user).Sign())
	require.Equal(t, big.NewInt(50), f.uToken.BalanceOf(receiver))
	require.Equal(t, big.NewInt(1_000_000), f.pair.RemainingCredit())
}

// TestPairScaleUpWithdrawRounding tests the divisible-part rule
func TestPairScaleUpWithdrawRounding(t *testing.T) {
	f := newPairFixture(t, 8, 6)
	require.NoError(t, f.pair.Deposit(user, big.NewInt(100)))
	require.Equal(t, big.NewInt(10_000), f.cToken.BalanceOf(user))

	// Withdrawing 5050 burns only the representable 5000.
	require.NoError(t, f.pair.Withdraw(user, big.NewInt(5050)))
	require.Equal(t, big.NewInt(5000), f.cToken.BalanceOf(user))
	require.Equal(t, big.NewInt(99_950), f.uToken.BalanceOf(user))

	require.ErrorIs(t, f.pair.WithdrawNoRounding(user, big.NewInt(5050)), ErrNoRounding)
	require.NoError(t, f.pair.WithdrawNoRounding(user, big.NewInt(5000)))

	// Less than one underlying unit converts to nothing.
	require.ErrorIs(t, f.pair.Withdraw(user, big.NewInt(99)), ErrInvalidAmount)
}

// TestPairScaleDownRoundTrip tests deposit and withdraw when the crosschain
// side has fewer decimals
func TestPairScaleDownRoundTrip(t *testing.T) {
	f := newPairFixture(t, 6, 8)

	// 12345 underlying converts to 123 crosschain; only 12300 is pulled.
	require.NoError(t, f.pair.Deposit(user, big.NewInt(12_345)))
	require.Equal(t, big.NewInt(123), f.cToken.BalanceOf(user))
	require.Equal(t, big.NewInt(100_000-12_300), f.uToken.BalanceOf(user))
	require.Equal(t, big.NewInt(12_300), f.uToken.BalanceOf(f.pair.Address()))
	require.Equal(t, big.NewInt(1_000_000-12_300), f.pair.RemainingCredit())

	require.ErrorIs(t, f.pair.DepositNoRounding(user, big.NewInt(12_345)), ErrNoRounding)
	require.NoError(t, f.pair.DepositToNoRounding(user, receiver, big.NewInt(200)))
	require.Equal(t, big.NewInt(2), f.cToken.BalanceOf(receiver))

	// Less than one crosschain unit converts to nothing.
	require.ErrorIs(t, f.pair.Deposit(user, big.NewInt(99)), ErrInvalidAmount)

	require.NoError(t, f.pair.Withdraw(user, big.NewInt(123)))
	require.Zero(t, f.cToken.BalanceOf(user).Sign())
	require.Equal(t, big.NewInt(100_000-12_300+12_300), f.uToken.BalanceOf(user))
}

// TestPairCredit tests the absorption cap
func TestPairCredit(t *testing.T) {
	f := newPairFixture(t, 18, 18)

	require.ErrorIs(t, f.pair.IncreaseCredit(stranger, big.NewInt(1)), ErrNotOwner)
	require.ErrorIs(t, f.pair.ReduceCredit(stranger, big.NewInt(1)), ErrNotOwner)
	require.ErrorIs(t, f.pair.IncreaseCredit(admin, big.NewInt(0)), ErrInvalidAmount)

	require.NoError(t, f.pair.ReduceCredit(admin, big.NewInt(999_990)))
	require.Equal(t, big.NewInt(10), f.pair.RemainingCredit())
	require.ErrorIs(t, f.pair.ReduceCredit(admin, big.NewInt(11)), ErrInsufficientCredit)

	// Deposits past the cap fail before any funds move.
	require.ErrorIs(t, f.pair.Deposit(user, big.NewInt(11)), ErrInsufficientCredit)
	require.Equal(t, big.NewInt(100_000), f.uToken.BalanceOf(user))

	require.NoError(t, f.pair.Deposit(user, big.NewInt(10)))
	require.Zero(t, f.pair.RemainingCredit().Sign())
	require.ErrorIs(t, f.pair.Deposit(user, big.NewInt(1)), ErrInsufficientCredit)

	// Withdrawals restore credit headroom.
	require.NoError(t, f.pair.Withdraw(user, big.NewInt(4)))
	require.Equal(t, big.NewInt(4), f.pair.RemainingCredit())
	require.NoError(t, f.pair.Deposit(user, big.NewInt(4)))
}

// TestPairRequiresMinter tests that an unregistered pair cannot mint
func TestPairRequiresMinter(t *testing.T) {
	chain := token.NewChain()
	lord := NewLord(admin, chain)
	dao := NewMinterDAO(admin, lord, nil)
	ct := chain.DeployCrosschainToken(dao, common.Address{}, "Crosschain Asset", "cASSET", 18)
	u := chain.DeployToken(admin, "Underlying Asset", "ASSET", 18)
	pair := NewCrosschainPair(admin, chain, ct, u)
	require.NoError(t, pair.IncreaseCredit(admin, big.NewInt(1000)))

	require.NoError(t, u.Mint(admin, user, big.NewInt(100)))
	require.NoError(t, u.Approve(user, pair.Address(), big.NewInt(100)))

	require.ErrorIs(t, pair.Deposit(user, big.NewInt(10)), token.ErrNotMinter)
	// The minter check runs before the pull.
	require.Equal(t, big.NewInt(100), u.BalanceOf(user))

	require.NoError(t, dao.AddMinter(admin, pair.Address(), ct.Address()))
	require.NoError(t, pair.Deposit(user, big.NewInt(10)))
	require.Equal(t, big.NewInt(10), ct.BalanceOf(user))
}

// TestPairValidation tests parameter checks
func TestPairValidation(t *testing.T) {
	f := newPairFixture(t, 18, 18)

	require.ErrorIs(t, f.pair.Deposit(user, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, f.pair.Deposit(user, nil), ErrInvalidAmount)
	require.ErrorIs(t, f.pair.DepositTo(user, common.Address{}, big.NewInt(1)), ErrInvalidRecipient)
	require.ErrorIs(t, f.pair.Withdraw(user, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, f.pair.WithdrawTo(user, common.Address{}, big.NewInt(1)), ErrInvalidRecipient)
}
