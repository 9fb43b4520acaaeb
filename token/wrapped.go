// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// WrappedCoin is a WETH-style wrapper: native coin in, fungible token out.
type WrappedCoin struct {
	*Token
	chain *Chain
}

var _ Fungible = (*WrappedCoin)(nil)

// Deposit locks the caller's native coin and mints wrapped coin 1:1.
func (w *WrappedCoin) Deposit(caller common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	if err := w.chain.TransferCoin(caller, w.addr, amount); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mint(caller, v)
	return nil
}

// Withdraw burns the caller's wrapped coin and releases native coin.
func (w *WrappedCoin) Withdraw(caller common.Address, amount *big.Int) error {
	return w.WithdrawTo(caller, caller, amount)
}

// WithdrawTo burns the caller's wrapped coin and releases native coin to to.
func (w *WrappedCoin) WithdrawTo(caller, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if err := w.burn(caller, v); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	return w.chain.TransferCoin(w.addr, to, amount)
}
