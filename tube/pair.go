// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/tube/token"
)

// ScaleType describes the decimal relation between a crosschain token and
// its underlying.
type ScaleType uint8

const (
	// ScaleNone: equal decimals, 1:1.
	ScaleNone ScaleType = iota
	// ScaleUp: crosschain has more decimals; deposits multiply.
	ScaleUp
	// ScaleDown: crosschain has fewer decimals; deposits divide.
	ScaleDown
)

// CrosschainPair converts between an underlying token and its crosschain
// representation when the two disagree on decimals. The scale is fixed at
// construction. Conversions that lose precision round down and move only
// the representable part; the NoRounding variants refuse instead.
//
// Minting goes through the crosschain token's authority, so the pair must
// be registered as a minter before its first deposit. The credit cap bounds
// how much underlying the pair may absorb.
type CrosschainPair struct {
	ownable
	addr      common.Address
	cToken    *token.CrosschainToken
	uToken    token.Fungible
	scale     *big.Int
	scaleType ScaleType
	credit    *big.Int

	mu sync.Mutex
}

// NewCrosschainPair builds a pair over cToken and its underlying uToken,
// deriving scale and direction from the tokens' decimals.
func NewCrosschainPair(owner common.Address, chain *token.Chain, cToken *token.CrosschainToken, uToken token.Fungible) *CrosschainPair {
	p := &CrosschainPair{
		ownable: ownable{owner: owner},
		addr:    chain.CreateAccount(),
		cToken:  cToken,
		uToken:  uToken,
		credit:  new(big.Int),
	}
	dC, dU := int(cToken.Decimals()), int(uToken.Decimals())
	switch {
	case dC > dU:
		p.scale = pow10(dC - dU)
		p.scaleType = ScaleUp
	case dC < dU:
		p.scale = pow10(dU - dC)
		p.scaleType = ScaleDown
	default:
		p.scale = big.NewInt(1)
		p.scaleType = ScaleNone
	}
	return p
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Address returns the pair's chain identity.
func (p *CrosschainPair) Address() common.Address { return p.addr }

// Scale returns the conversion factor.
func (p *CrosschainPair) Scale() *big.Int { return new(big.Int).Set(p.scale) }

// ScaleType returns the conversion direction.
func (p *CrosschainPair) ScaleType() ScaleType { return p.scaleType }

// RemainingCredit returns how much underlying the pair may still absorb.
func (p *CrosschainPair) RemainingCredit() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.credit)
}

// IncreaseCredit raises the absorption cap. Owner only.
func (p *CrosschainPair) IncreaseCredit(caller common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != p.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p.credit.Add(p.credit, amount)
	return nil
}

// ReduceCredit lowers the absorption cap. Owner only; cannot go below what
// is already absorbed.
func (p *CrosschainPair) ReduceCredit(caller common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != p.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if p.credit.Cmp(amount) < 0 {
		return ErrInsufficientCredit
	}
	p.credit.Sub(p.credit, amount)
	return nil
}

// TransferOwnership proposes a new owner (two-phase).
func (p *CrosschainPair) TransferOwnership(caller, newOwner common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (p *CrosschainPair) AcceptOwnership(caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acceptOwnership(caller)
}

// depositAmounts converts an underlying amount for deposit: the crosschain
// amount to mint and the underlying actually pulled (the divisible part
// when scaling down).
func (p *CrosschainPair) depositAmounts(amount *big.Int) (minted, pulled *big.Int) {
	switch p.scaleType {
	case ScaleUp:
		return new(big.Int).Mul(amount, p.scale), new(big.Int).Set(amount)
	case ScaleDown:
		minted = new(big.Int).Div(amount, p.scale)
		return minted, new(big.Int).Mul(minted, p.scale)
	default:
		return new(big.Int).Set(amount), new(big.Int).Set(amount)
	}
}

// withdrawAmounts converts a crosschain amount for withdrawal: the
// crosschain amount actually burned (the divisible part when scaling up)
// and the underlying released.
func (p *CrosschainPair) withdrawAmounts(amount *big.Int) (burned, released *big.Int) {
	switch p.scaleType {
	case ScaleUp:
		released = new(big.Int).Div(amount, p.scale)
		return new(big.Int).Mul(released, p.scale), released
	case ScaleDown:
		return new(big.Int).Set(amount), new(big.Int).Mul(amount, p.scale)
	default:
		return new(big.Int).Set(amount), new(big.Int).Set(amount)
	}
}

// Deposit converts the caller's underlying into crosschain tokens.
func (p *CrosschainPair) Deposit(caller common.Address, amount *big.Int) error {
	return p.DepositTo(caller, caller, amount)
}

// DepositTo converts the caller's underlying, crediting recipient.
func (p *CrosschainPair) DepositTo(caller, recipient common.Address, amount *big.Int) error {
	return p.depositTo(caller, recipient, amount, false)
}

// DepositNoRounding converts the caller's underlying, refusing any amount
// the scale cannot represent exactly.
func (p *CrosschainPair) DepositNoRounding(caller common.Address, amount *big.Int) error {
	return p.depositTo(caller, caller, amount, true)
}

// DepositToNoRounding is DepositNoRounding crediting recipient.
func (p *CrosschainPair) DepositToNoRounding(caller, recipient common.Address, amount *big.Int) error {
	return p.depositTo(caller, recipient, amount, true)
}

func (p *CrosschainPair) depositTo(caller, recipient common.Address, amount *big.Int, exact bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if recipient == (common.Address{}) {
		return ErrInvalidRecipient
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	minted, pulled := p.depositAmounts(amount)
	if minted.Sign() == 0 {
		return ErrInvalidAmount
	}
	if exact && pulled.Cmp(amount) != 0 {
		return ErrNoRounding
	}
	if p.credit.Cmp(pulled) < 0 {
		return ErrInsufficientCredit
	}
	ok, err := p.cToken.CanMint(p.addr)
	if err != nil {
		return err
	}
	if !ok {
		return token.ErrNotMinter
	}

	if err := p.uToken.TransferFrom(p.addr, caller, p.addr, pulled); err != nil {
		return err
	}
	if err := p.cToken.Mint(p.addr, recipient, minted); err != nil {
		return err
	}
	p.credit.Sub(p.credit, pulled)
	return nil
}

// Withdraw converts the caller's crosschain tokens back into underlying.
func (p *CrosschainPair) Withdraw(caller common.Address, amount *big.Int) error {
	return p.withdrawTo(caller, caller, amount, false)
}

// WithdrawTo converts the caller's crosschain tokens, releasing underlying
// to recipient.
func (p *CrosschainPair) WithdrawTo(caller, recipient common.Address, amount *big.Int) error {
	return p.withdrawTo(caller, recipient, amount, false)
}

// WithdrawNoRounding converts the caller's crosschain tokens, refusing any
// amount the scale cannot represent exactly.
func (p *CrosschainPair) WithdrawNoRounding(caller common.Address, amount *big.Int) error {
	return p.withdrawTo(caller, caller, amount, true)
}

// WithdrawToNoRounding is WithdrawNoRounding releasing to recipient.
func (p *CrosschainPair) WithdrawToNoRounding(caller, recipient common.Address, amount *big.Int) error {
	return p.withdrawTo(caller, recipient, amount, true)
}

func (p *CrosschainPair) withdrawTo(caller, recipient common.Address, amount *big.Int, exact bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if recipient == (common.Address{}) {
		return ErrInvalidRecipient
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	burned, released := p.withdrawAmounts(amount)
	if released.Sign() == 0 {
		return ErrInvalidAmount
	}
	if exact && burned.Cmp(amount) != 0 {
		return ErrNoRounding
	}

	if err := p.cToken.Burn(p.addr, caller, burned); err != nil {
		return err
	}
	if err := p.uToken.Transfer(p.addr, recipient, released); err != nil {
		return err
	}
	p.credit.Add(p.credit, released)
	return nil
}
