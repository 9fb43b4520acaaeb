// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"testing"

	"github.com/luxfi/tube/token"
	"github.com/stretchr/testify/require"
)

// TestTubeRouterRelayFee tests relay activation and fee collection
func TestTubeRouterRelayFee(t *testing.T) {
	f := newFixture(t)
	router := NewTubeRouter(admin, f.chain, f.tube, treasury)

	require.ErrorIs(t, router.SetRelayFee(stranger, destTubeID, true, big.NewInt(5)), ErrNotOwner)

	require.NoError(t, f.custodial.Mint(admin, user, big.NewInt(100)))
	require.NoError(t, f.custodial.Approve(user, f.tube.Address(), big.NewInt(100)))
	require.NoError(t, f.chain.MintCoin(user, big.NewInt(20)))

	// Relay not configured.
	_, err := router.DepositTo(user, destTubeID, receiver, f.custodial.Address(), big.NewInt(10), big.NewInt(5), nil)
	require.ErrorIs(t, err, ErrRelayNotActive)

	require.NoError(t, router.SetRelayFee(admin, destTubeID, true, big.NewInt(5)))
	active, fee := router.RelayFee(destTubeID)
	require.True(t, active)
	require.Equal(t, big.NewInt(5), fee)

	// Underpayment.
	_, err = router.DepositTo(user, destTubeID, receiver, f.custodial.Address(), big.NewInt(10), big.NewInt(4), nil)
	require.ErrorIs(t, err, ErrInsufficientRelayFee)

	nonce, err := router.DepositTo(user, destTubeID, receiver, f.custodial.Address(), big.NewInt(10), big.NewInt(5), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
	require.Equal(t, big.NewInt(15), f.chain.CoinBalanceOf(user))
	require.Equal(t, big.NewInt(5), f.chain.CoinBalanceOf(treasury))
	require.Equal(t, big.NewInt(10), f.custodial.BalanceOf(f.tube.Address()))

	// Deactivation closes the relay again.
	require.NoError(t, router.SetRelayFee(admin, destTubeID, false, big.NewInt(5)))
	_, err = router.DepositTo(user, destTubeID, receiver, f.custodial.Address(), big.NewInt(10), big.NewInt(5), nil)
	require.ErrorIs(t, err, ErrRelayNotActive)
}

// TestTubeRouterPaymentRefund tests that a failed deposit returns the
// relay payment
func TestTubeRouterPaymentRefund(t *testing.T) {
	f := newFixture(t)
	router := NewTubeRouter(admin, f.chain, f.tube, treasury)
	require.NoError(t, router.SetRelayFee(admin, destTubeID, true, big.NewInt(5)))

	require.NoError(t, f.chain.MintCoin(user, big.NewInt(20)))
	require.NoError(t, f.custodial.Mint(admin, user, big.NewInt(100)))

	// Payment covers the relay but the tube was never approved.
	_, err := router.DepositTo(user, destTubeID, receiver, f.custodial.Address(), big.NewInt(10), big.NewInt(5), nil)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	require.Equal(t, big.NewInt(20), f.chain.CoinBalanceOf(user))
	require.Zero(t, f.chain.CoinBalanceOf(treasury).Sign())
}

// coinFixture wires native coin, wrapped coin and a crosschain coin whose
// co-token is the wrapped coin.
type coinFixture struct {
	chain      *token.Chain
	wrapped    *token.WrappedCoin
	crosschain *token.CrosschainToken
	router     *CoinRouter
}

func newCoinFixture(t *testing.T) *coinFixture {
	t.Helper()
	f := &coinFixture{chain: token.NewChain()}
	lord := NewLord(admin, f.chain)
	dao := NewMinterDAO(admin, lord, nil)
	f.wrapped = f.chain.DeployWrappedCoin("Wrapped Coin", "WCOIN")
	f.crosschain = f.chain.DeployCrosschainToken(dao, f.wrapped.Address(), "Crosschain Coin", "cCOIN", 18)
	f.router = NewCoinRouter(f.chain, f.wrapped, f.crosschain)
	require.NoError(t, f.chain.MintCoin(user, big.NewInt(1000)))
	return f
}

// TestCoinRouterSwaps tests all six 1:1 conversions
func TestCoinRouterSwaps(t *testing.T) {
	f := newCoinFixture(t)

	// coin -> wrapped -> coin
	require.NoError(t, f.router.SwapCoinForWrappedCoin(user, big.NewInt(100)))
	require.Equal(t, big.NewInt(100), f.wrapped.BalanceOf(user))
	require.Equal(t, big.NewInt(900), f.chain.CoinBalanceOf(user))
	require.NoError(t, f.router.SwapWrappedCoinForCoin(user, big.NewInt(40)))
	require.Equal(t, big.NewInt(60), f.wrapped.BalanceOf(user))
	require.Equal(t, big.NewInt(940), f.chain.CoinBalanceOf(user))

	// wrapped -> crosschain -> wrapped
	require.NoError(t, f.wrapped.Approve(user, f.router.Address(), big.NewInt(60)))
	require.NoError(t, f.router.SwapWrappedCoinForCrosschainCoin(user, big.NewInt(60)))
	require.Zero(t, f.wrapped.BalanceOf(user).Sign())
	require.Equal(t, big.NewInt(60), f.crosschain.BalanceOf(user))

	require.NoError(t, f.crosschain.Approve(user, f.router.Address(), big.NewInt(60)))
	require.NoError(t, f.router.SwapCrosschainCoinForWrappedCoin(user, big.NewInt(10)))
	require.Equal(t, big.NewInt(10), f.wrapped.BalanceOf(user))
	require.Equal(t, big.NewInt(50), f.crosschain.BalanceOf(user))

	// coin -> crosschain -> coin
	require.NoError(t, f.router.SwapCoinForCrosschainCoin(user, big.NewInt(200)))
	require.Equal(t, big.NewInt(740), f.chain.CoinBalanceOf(user))
	require.Equal(t, big.NewInt(250), f.crosschain.BalanceOf(user))

	require.NoError(t, f.router.SwapCrosschainCoinForCoin(user, big.NewInt(50)))
	require.Equal(t, big.NewInt(790), f.chain.CoinBalanceOf(user))
	require.Equal(t, big.NewInt(200), f.crosschain.BalanceOf(user))

	// Supply invariant: every crosschain coin is backed by wrapped coin,
	// every wrapped coin by native coin.
	require.Equal(t, f.crosschain.TotalSupply().Add(f.crosschain.TotalSupply(), f.wrapped.BalanceOf(user)), f.wrapped.TotalSupply())
	require.Equal(t, f.wrapped.TotalSupply(), f.chain.CoinBalanceOf(f.wrapped.Address()))
}

// TestCoinRouterInsufficientFunds tests that swaps fail cleanly
func TestCoinRouterInsufficientFunds(t *testing.T) {
	f := newCoinFixture(t)

	require.ErrorIs(t, f.router.SwapCoinForWrappedCoin(user, big.NewInt(1001)), token.ErrInsufficientCoin)
	require.ErrorIs(t, f.router.SwapWrappedCoinForCoin(user, big.NewInt(1)), token.ErrInsufficientBalance)
	require.ErrorIs(t, f.router.SwapCrosschainCoinForCoin(user, big.NewInt(1)), token.ErrInsufficientAllowance)

	require.NoError(t, f.crosschain.Approve(user, f.router.Address(), big.NewInt(10)))
	require.ErrorIs(t, f.router.SwapCrosschainCoinForWrappedCoin(user, big.NewInt(10)), token.ErrInsufficientBalance)
}
