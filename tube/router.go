// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/tube/token"
)

type relay struct {
	active bool
	fee    *big.Int
}

// TubeRouter fronts a Tube with relay-fee collection: users pay the
// off-chain relayer in native coin here, and the deposit goes through in
// the same call.
type TubeRouter struct {
	ownable
	addr   common.Address
	chain  *token.Chain
	tube   *Tube
	safe   common.Address
	relays map[uint64]*relay

	mu sync.Mutex
}

// NewTubeRouter creates a router over tube, paying relay fees to safe.
func NewTubeRouter(owner common.Address, chain *token.Chain, tube *Tube, safe common.Address) *TubeRouter {
	return &TubeRouter{
		ownable: ownable{owner: owner},
		addr:    chain.CreateAccount(),
		chain:   chain,
		tube:    tube,
		safe:    safe,
		relays:  make(map[uint64]*relay),
	}
}

// Address returns the router's chain identity.
func (r *TubeRouter) Address() common.Address { return r.addr }

// TransferOwnership proposes a new owner (two-phase).
func (r *TubeRouter) TransferOwnership(caller, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (r *TubeRouter) AcceptOwnership(caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptOwnership(caller)
}

// SetRelayFee activates or deactivates relaying toward destTubeID and sets
// its fee. Owner only.
func (r *TubeRouter) SetRelayFee(caller common.Address, destTubeID uint64, active bool, fee *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	if fee == nil || fee.Sign() < 0 {
		return ErrInvalidAmount
	}
	r.relays[destTubeID] = &relay{active: active, fee: new(big.Int).Set(fee)}
	return nil
}

// RelayFee returns the relay state and fee toward destTubeID.
func (r *TubeRouter) RelayFee(destTubeID uint64) (bool, *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.relays[destTubeID]
	if !ok {
		return false, new(big.Int)
	}
	return rl.active, new(big.Int).Set(rl.fee)
}

// DepositTo collects payment in native coin for the relayer and forwards
// the deposit to the tube under the caller's identity. payment must cover
// the configured fee.
func (r *TubeRouter) DepositTo(caller common.Address, destTubeID uint64, recipient, tokenAddr common.Address, amount, payment *big.Int, data []byte) (uint64, error) {
	r.mu.Lock()
	rl, ok := r.relays[destTubeID]
	if !ok || !rl.active {
		r.mu.Unlock()
		return 0, ErrRelayNotActive
	}
	fee := new(big.Int).Set(rl.fee)
	r.mu.Unlock()

	if payment == nil || payment.Cmp(fee) < 0 {
		return 0, ErrInsufficientRelayFee
	}
	if payment.Sign() > 0 {
		if err := r.chain.TransferCoin(caller, r.safe, payment); err != nil {
			return 0, err
		}
	}
	nonce, err := r.tube.DepositTo(caller, destTubeID, recipient, tokenAddr, amount, data)
	if err != nil {
		// The relay never happens when the deposit fails, so the payment
		// goes back.
		if payment.Sign() > 0 {
			if rerr := r.chain.TransferCoin(r.safe, caller, payment); rerr != nil {
				return 0, rerr
			}
		}
		return 0, err
	}
	return nonce, nil
}

// CoinRouter swaps 1:1 between the three local forms of the chain's coin:
// native, wrapped (WETH-style) and crosschain. Intermediate hops run under
// the router's own account, so the caller needs one approval at most.
type CoinRouter struct {
	addr       common.Address
	chain      *token.Chain
	wrapped    *token.WrappedCoin
	crosschain *token.CrosschainToken
}

// NewCoinRouter creates a router over wrapped and its crosschain
// counterpart. crosschain's co-token must be wrapped.
func NewCoinRouter(chain *token.Chain, wrapped *token.WrappedCoin, crosschain *token.CrosschainToken) *CoinRouter {
	return &CoinRouter{
		addr:       chain.CreateAccount(),
		chain:      chain,
		wrapped:    wrapped,
		crosschain: crosschain,
	}
}

// Address returns the router's chain identity.
func (r *CoinRouter) Address() common.Address { return r.addr }

// SwapCoinForWrappedCoin wraps the caller's native coin.
func (r *CoinRouter) SwapCoinForWrappedCoin(caller common.Address, amount *big.Int) error {
	return r.wrapped.Deposit(caller, amount)
}

// SwapWrappedCoinForCoin unwraps the caller's wrapped coin.
func (r *CoinRouter) SwapWrappedCoinForCoin(caller common.Address, amount *big.Int) error {
	return r.wrapped.Withdraw(caller, amount)
}

// SwapCoinForCrosschainCoin wraps the caller's native coin and deposits the
// wrapped coin into the crosschain token.
func (r *CoinRouter) SwapCoinForCrosschainCoin(caller common.Address, amount *big.Int) error {
	if err := r.chain.TransferCoin(caller, r.addr, amount); err != nil {
		return err
	}
	if err := r.wrapped.Deposit(r.addr, amount); err != nil {
		return err
	}
	if err := r.wrapped.Approve(r.addr, r.crosschain.Address(), amount); err != nil {
		return err
	}
	return r.crosschain.DepositTo(r.addr, caller, amount)
}

// SwapCrosschainCoinForCoin unwinds crosschain coin all the way back to
// native. The caller must have approved the router on the crosschain token.
func (r *CoinRouter) SwapCrosschainCoinForCoin(caller common.Address, amount *big.Int) error {
	if err := r.crosschain.TransferFrom(r.addr, caller, r.addr, amount); err != nil {
		return err
	}
	if err := r.crosschain.WithdrawTo(r.addr, r.addr, amount); err != nil {
		return err
	}
	return r.wrapped.WithdrawTo(r.addr, caller, amount)
}

// SwapWrappedCoinForCrosschainCoin deposits the caller's wrapped coin into
// the crosschain token. The caller must have approved the router on the
// wrapped coin.
func (r *CoinRouter) SwapWrappedCoinForCrosschainCoin(caller common.Address, amount *big.Int) error {
	if err := r.wrapped.TransferFrom(r.addr, caller, r.addr, amount); err != nil {
		return err
	}
	if err := r.wrapped.Approve(r.addr, r.crosschain.Address(), amount); err != nil {
		return err
	}
	return r.crosschain.DepositTo(r.addr, caller, amount)
}

// SwapCrosschainCoinForWrappedCoin withdraws the caller's crosschain coin
// back into wrapped coin. The caller must have approved the router on the
// crosschain token.
func (r *CoinRouter) SwapCrosschainCoinForWrappedCoin(caller common.Address, amount *big.Int) error {
	if err := r.crosschain.TransferFrom(r.addr, caller, r.addr, amount); err != nil {
		return err
	}
	return r.crosschain.WithdrawTo(r.addr, caller, amount)
}
