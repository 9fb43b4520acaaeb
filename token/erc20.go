// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Token errors
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrNotOwner              = errors.New("caller is not the owner")
	ErrNotMinter             = errors.New("not the minter")
	ErrNoUnderlying          = errors.New("no co-token")
	ErrUnknownToken          = errors.New("unknown token")
	ErrInsufficientCoin      = errors.New("insufficient coin balance")
	ErrNotApproved           = errors.New("not owner nor approved")
	ErrTokenMinted           = errors.New("token already minted")
	ErrTokenNotFound         = errors.New("token does not exist")
)

// Fungible is the ERC20-style surface the bridge components drive. Callers
// are identified explicitly; authorization is the token's concern, identity
// is the caller's.
type Fungible interface {
	Address() common.Address
	Name() string
	Symbol() string
	Decimals() uint8
	TotalSupply() *big.Int
	BalanceOf(holder common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
	Approve(holder, spender common.Address, amount *big.Int) error
	Allowance(holder, spender common.Address) *big.Int
	Mint(caller, to common.Address, amount *big.Int) error
	Burn(caller, from common.Address, amount *big.Int) error
}

// Token is an in-memory fungible token with owner-gated supply.
type Token struct {
	addr     common.Address
	name     string
	symbol   string
	decimals uint8
	owner    common.Address

	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int

	mu sync.RWMutex
}

var _ Fungible = (*Token)(nil)

func newToken(addr, owner common.Address, name, symbol string, decimals uint8) *Token {
	return &Token{
		addr:        addr,
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		owner:       owner,
		totalSupply: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (t *Token) Address() common.Address { return t.addr }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return t.decimals }

// Owner returns the account permitted to mint.
func (t *Token) Owner() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

// TransferOwnership moves the mint right to a new owner.
func (t *Token) TransferOwnership(caller, newOwner common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.owner {
		return ErrNotOwner
	}
	t.owner = newOwner
	return nil
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.ToBig()
}

func (t *Token) BalanceOf(holder common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.balances[holder]; ok {
		return b.ToBig()
	}
	return new(big.Int)
}

func (t *Token) Allowance(holder, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.allowances[holder]; ok {
		if a, ok := m[spender]; ok {
			return a.ToBig()
		}
	}
	return new(big.Int)
}

func (t *Token) Approve(holder, spender common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.allowances[holder]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		t.allowances[holder] = m
	}
	m[spender] = v
	return nil
}

func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, v)
}

func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if spender != from {
		if err := t.spendAllowance(from, spender, v); err != nil {
			return err
		}
	}
	return t.move(from, to, v)
}

// Mint creates supply; only the token owner may call.
func (t *Token) Mint(caller, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.owner {
		return ErrNotOwner
	}
	t.mint(to, v)
	return nil
}

// Burn destroys supply held by from. A caller other than the holder must be
// the owner and spends the holder's allowance.
func (t *Token) Burn(caller, from common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != from {
		if caller != t.owner {
			return ErrNotOwner
		}
		if err := t.spendAllowance(from, caller, v); err != nil {
			return err
		}
	}
	return t.burn(from, v)
}

// move, mint, burn and spendAllowance require t.mu held.

func (t *Token) move(from, to common.Address, v *uint256.Int) error {
	b, ok := t.balances[from]
	if !ok || b.Lt(v) {
		return ErrInsufficientBalance
	}
	b.Sub(b, v)
	t.credit(to, v)
	return nil
}

func (t *Token) mint(to common.Address, v *uint256.Int) {
	t.totalSupply.Add(t.totalSupply, v)
	t.credit(to, v)
}

func (t *Token) burn(from common.Address, v *uint256.Int) error {
	b, ok := t.balances[from]
	if !ok || b.Lt(v) {
		return ErrInsufficientBalance
	}
	b.Sub(b, v)
	t.totalSupply.Sub(t.totalSupply, v)
	return nil
}

func (t *Token) credit(to common.Address, v *uint256.Int) {
	if b, ok := t.balances[to]; ok {
		b.Add(b, v)
		return
	}
	t.balances[to] = new(uint256.Int).Set(v)
}

func (t *Token) spendAllowance(holder, spender common.Address, v *uint256.Int) error {
	m, ok := t.allowances[holder]
	if !ok {
		return ErrInsufficientAllowance
	}
	a, ok := m[spender]
	if !ok || a.Lt(v) {
		return ErrInsufficientAllowance
	}
	a.Sub(a, v)
	return nil
}

func toU256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
