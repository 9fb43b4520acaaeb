// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// NFT is a minimal non-fungible token registry: ownership, per-token
// approvals and operator approvals, owner-gated minting.
type NFT struct {
	addr   common.Address
	name   string
	symbol string
	owner  common.Address

	owners    map[uint64]common.Address
	approved  map[uint64]common.Address
	operators map[common.Address]map[common.Address]bool

	mu sync.RWMutex
}

func newNFT(addr, owner common.Address, name, symbol string) *NFT {
	return &NFT{
		addr:      addr,
		name:      name,
		symbol:    symbol,
		owner:     owner,
		owners:    make(map[uint64]common.Address),
		approved:  make(map[uint64]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

func (n *NFT) Address() common.Address { return n.addr }
func (n *NFT) Name() string            { return n.name }
func (n *NFT) Symbol() string          { return n.symbol }

// TransferOwnership moves the mint right to a new owner.
func (n *NFT) TransferOwnership(caller, newOwner common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.owner {
		return ErrNotOwner
	}
	n.owner = newOwner
	return nil
}

// Mint creates tokenID owned by to; only the registry owner may call.
func (n *NFT) Mint(caller, to common.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.owner {
		return ErrNotOwner
	}
	if _, ok := n.owners[tokenID]; ok {
		return ErrTokenMinted
	}
	n.owners[tokenID] = to
	return nil
}

// Burn destroys tokenID. The caller must hold the token or be approved.
func (n *NFT) Burn(caller common.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	holder, ok := n.owners[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	if caller != holder && n.approved[tokenID] != caller && !n.operators[holder][caller] {
		return ErrNotApproved
	}
	delete(n.owners, tokenID)
	delete(n.approved, tokenID)
	return nil
}

// Approve lets spender act on tokenID.
func (n *NFT) Approve(holder, spender common.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.owners[tokenID] != holder {
		return ErrNotApproved
	}
	n.approved[tokenID] = spender
	return nil
}

// SetApprovalForAll lets operator act on all of holder's tokens.
func (n *NFT) SetApprovalForAll(holder, operator common.Address, approved bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.operators[holder]
	if !ok {
		m = make(map[common.Address]bool)
		n.operators[holder] = m
	}
	m[operator] = approved
}

// OwnerOf returns the holder of tokenID.
func (n *NFT) OwnerOf(tokenID uint64) (common.Address, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	holder, ok := n.owners[tokenID]
	return holder, ok
}

// BalanceOf counts tokens held by holder.
func (n *NFT) BalanceOf(holder common.Address) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, h := range n.owners {
		if h == holder {
			count++
		}
	}
	return count
}
