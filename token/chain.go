// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the in-memory asset layer the bridge core drives:
// a native coin ledger, fungible tokens, NFTs, a wrapped coin and crosschain
// tokens whose supply is gated by a minter authority.
package token

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// Chain holds the native coin ledger and the set of deployed assets.
type Chain struct {
	coin   map[common.Address]*uint256.Int
	tokens map[common.Address]Fungible
	nfts   map[common.Address]*NFT
	nonce  uint64

	mu sync.RWMutex
}

// NewChain creates an empty chain state.
func NewChain() *Chain {
	return &Chain{
		coin:   make(map[common.Address]*uint256.Int),
		tokens: make(map[common.Address]Fungible),
		nfts:   make(map[common.Address]*NFT),
	}
}

// CreateAccount derives a fresh address. Used for contract principals
// (tube, lord, pairs, routers) that need an identity on the chain.
func (c *Chain) CreateAccount() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextAddress()
}

// nextAddress requires c.mu held.
func (c *Chain) nextAddress() common.Address {
	c.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.nonce)
	return common.BytesToAddress(crypto.Keccak256(buf[:])[12:])
}

// MintCoin credits native coin to an account. Test and genesis funding.
func (c *Chain) MintCoin(to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.coin[to]; ok {
		b.Add(b, v)
	} else {
		c.coin[to] = new(uint256.Int).Set(v)
	}
	return nil
}

// CoinBalanceOf returns the native coin balance of an account.
func (c *Chain) CoinBalanceOf(addr common.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.coin[addr]; ok {
		return b.ToBig()
	}
	return new(big.Int)
}

// TransferCoin moves native coin between accounts.
func (c *Chain) TransferCoin(from, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.coin[from]
	if !ok || b.Lt(v) {
		return ErrInsufficientCoin
	}
	b.Sub(b, v)
	if t, ok := c.coin[to]; ok {
		t.Add(t, v)
	} else {
		c.coin[to] = new(uint256.Int).Set(v)
	}
	return nil
}

// DeployToken deploys a plain fungible token owned by owner.
func (c *Chain) DeployToken(owner common.Address, name, symbol string, decimals uint8) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newToken(c.nextAddress(), owner, name, symbol, decimals)
	c.tokens[t.addr] = t
	return t
}

// DeployWrappedCoin deploys a WETH-style wrapper over the native coin.
func (c *Chain) DeployWrappedCoin(name, symbol string) *WrappedCoin {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &WrappedCoin{
		Token: newToken(c.nextAddress(), common.Address{}, name, symbol, 18),
		chain: c,
	}
	c.tokens[w.addr] = w
	return w
}

// DeployCrosschainToken deploys a crosschain token. underlying may be the
// zero address for foreign representations with no local backing; authority
// may be nil, in which case external minting is disabled.
func (c *Chain) DeployCrosschainToken(authority MinterAuthority, underlying common.Address, name, symbol string, decimals uint8) *CrosschainToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct := &CrosschainToken{
		Token:     newToken(c.nextAddress(), common.Address{}, name, symbol, decimals),
		chain:     c,
		authority: authority,
		coToken:   underlying,
	}
	c.tokens[ct.addr] = ct
	return ct
}

// DeployNFT deploys a non-fungible token registry owned by owner.
func (c *Chain) DeployNFT(owner common.Address, name, symbol string) *NFT {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := newNFT(c.nextAddress(), owner, name, symbol)
	c.nfts[n.addr] = n
	return n
}

// Token resolves a fungible token by address.
func (c *Chain) Token(addr common.Address) (Fungible, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[addr]
	return t, ok
}

// Crosschain resolves a crosschain token by address.
func (c *Chain) Crosschain(addr common.Address) (*CrosschainToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ct, ok := c.tokens[addr].(*CrosschainToken)
	return ct, ok
}

// NFT resolves an NFT registry by address.
func (c *Chain) NFT(addr common.Address) (*NFT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nfts[addr]
	return n, ok
}
