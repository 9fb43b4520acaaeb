// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// MinterAuthority decides which accounts may mint or burn a crosschain
// token. The bridge's MinterDAO implements it.
type MinterAuthority interface {
	IsMinter(account, token common.Address) (bool, error)
}

// CrosschainToken represents value locked on another chain. Supply changes
// two ways: a minter (the Lord, or a rescaling pair) mints and burns against
// attested transfers, or holders wrap the local co-token 1:1.
type CrosschainToken struct {
	*Token
	chain     *Chain
	authority MinterAuthority
	coToken   common.Address
}

var _ Fungible = (*CrosschainToken)(nil)

// CoToken returns the 1:1 backing token, or the zero address.
func (ct *CrosschainToken) CoToken() common.Address { return ct.coToken }

// CanMint reports whether account is an authorized minter.
func (ct *CrosschainToken) CanMint(account common.Address) (bool, error) {
	if ct.authority == nil {
		return false, nil
	}
	return ct.authority.IsMinter(account, ct.addr)
}

// Mint creates supply; gated by the minter authority.
func (ct *CrosschainToken) Mint(caller, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	ok, err := ct.CanMint(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMinter
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.mint(to, v)
	return nil
}

// Burn destroys supply; gated by the minter authority. A caller other than
// the holder spends the holder's allowance.
func (ct *CrosschainToken) Burn(caller, from common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	ok, err := ct.CanMint(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMinter
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if caller != from {
		if err := ct.spendAllowance(from, caller, v); err != nil {
			return err
		}
	}
	return ct.burn(from, v)
}

// Deposit wraps the caller's co-token 1:1 into crosschain tokens.
func (ct *CrosschainToken) Deposit(caller common.Address, amount *big.Int) error {
	return ct.DepositTo(caller, caller, amount)
}

// DepositTo wraps the caller's co-token and credits to.
func (ct *CrosschainToken) DepositTo(caller, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	co, err := ct.underlying()
	if err != nil {
		return err
	}
	if err := co.TransferFrom(ct.addr, caller, ct.addr, amount); err != nil {
		return err
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.mint(to, v)
	return nil
}

// Withdraw unwraps the caller's crosschain tokens back into the co-token.
func (ct *CrosschainToken) Withdraw(caller common.Address, amount *big.Int) error {
	return ct.WithdrawTo(caller, caller, amount)
}

// WithdrawTo unwraps the caller's crosschain tokens and releases the
// co-token to to.
func (ct *CrosschainToken) WithdrawTo(caller, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	co, err := ct.underlying()
	if err != nil {
		return err
	}
	ct.mu.Lock()
	if err := ct.burn(caller, v); err != nil {
		ct.mu.Unlock()
		return err
	}
	ct.mu.Unlock()
	return co.Transfer(ct.addr, to, amount)
}

func (ct *CrosschainToken) underlying() (Fungible, error) {
	if ct.coToken == (common.Address{}) {
		return nil, ErrNoUnderlying
	}
	co, ok := ct.chain.Token(ct.coToken)
	if !ok {
		return nil, ErrUnknownToken
	}
	return co, nil
}
