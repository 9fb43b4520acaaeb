// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/tube/token"
)

// Lord is the mint/burn authority standing between the bridge endpoint and
// the crosschain tokens. Tokens trust the Lord (through the MinterDAO)
// rather than any particular endpoint, so swapping the endpoint is an
// ownership handover on the Lord, not a migration of every token.
type Lord struct {
	ownable
	addr      common.Address
	chain     *token.Chain
	operators map[common.Address]bool

	mu sync.Mutex
}

// NewLord creates a Lord with its own account on chain.
func NewLord(owner common.Address, chain *token.Chain) *Lord {
	return &Lord{
		ownable:   ownable{owner: owner},
		addr:      chain.CreateAccount(),
		chain:     chain,
		operators: make(map[common.Address]bool),
	}
}

// Address returns the Lord's chain identity. Tokens see mints and burns as
// coming from this address.
func (l *Lord) Address() common.Address { return l.addr }

// Owner returns the current owner.
func (l *Lord) Owner() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// TransferOwnership proposes a new owner (two-phase).
func (l *Lord) TransferOwnership(caller, newOwner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (l *Lord) AcceptOwnership(caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acceptOwnership(caller)
}

// AddOperator grants mint/burn rights. Owner only.
func (l *Lord) AddOperator(caller, operator common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrNotOwner
	}
	if l.operators[operator] {
		return ErrAlreadyOperator
	}
	l.operators[operator] = true
	return nil
}

// RemoveOperator revokes mint/burn rights. Owner only.
func (l *Lord) RemoveOperator(caller, operator common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrNotOwner
	}
	if !l.operators[operator] {
		return ErrNotOperator
	}
	delete(l.operators, operator)
	return nil
}

func (l *Lord) checkCaller(caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner && !l.operators[caller] {
		return ErrInvalidOperator
	}
	return nil
}

// Mint creates tokenAddr supply for recipient.
func (l *Lord) Mint(caller, tokenAddr, recipient common.Address, amount *big.Int) error {
	if err := l.checkCaller(caller); err != nil {
		return err
	}
	ct, ok := l.chain.Crosschain(tokenAddr)
	if !ok {
		return token.ErrUnknownToken
	}
	return ct.Mint(l.addr, recipient, amount)
}

// Burn destroys tokenAddr supply held by holder. When the holder is not the
// Lord itself, the holder must have approved the Lord's address.
func (l *Lord) Burn(caller, tokenAddr, holder common.Address, amount *big.Int) error {
	if err := l.checkCaller(caller); err != nil {
		return err
	}
	ct, ok := l.chain.Crosschain(tokenAddr)
	if !ok {
		return token.ErrUnknownToken
	}
	return ct.Burn(l.addr, holder, amount)
}

// MintNFT mints tokenID of nftAddr to recipient. The Lord must own the
// NFT registry.
func (l *Lord) MintNFT(caller, nftAddr, recipient common.Address, tokenID uint64) error {
	if err := l.checkCaller(caller); err != nil {
		return err
	}
	n, ok := l.chain.NFT(nftAddr)
	if !ok {
		return token.ErrUnknownToken
	}
	return n.Mint(l.addr, recipient, tokenID)
}

// BurnNFT destroys tokenID of nftAddr. The holder must hold it through the
// Lord or have approved the Lord.
func (l *Lord) BurnNFT(caller, nftAddr common.Address, tokenID uint64) error {
	if err := l.checkCaller(caller); err != nil {
		return err
	}
	n, ok := l.chain.NFT(nftAddr)
	if !ok {
		return token.ErrUnknownToken
	}
	return n.Burn(l.addr, tokenID)
}

// MinterDAO is the token-side source of minting truth: crosschain tokens
// ask it whether an account may change their supply. The Lord is minter for
// every token; rescaling pairs are registered per token.
type MinterDAO struct {
	ownable
	lord      *Lord
	minters   map[common.Address]map[common.Address]bool
	emergency *EmergencyOperator
	paused    bool

	mu sync.RWMutex
}

var _ token.MinterAuthority = (*MinterDAO)(nil)

// NewMinterDAO creates a MinterDAO trusting lord for every token.
// emergency may be nil.
func NewMinterDAO(owner common.Address, lord *Lord, emergency *EmergencyOperator) *MinterDAO {
	return &MinterDAO{
		ownable:   ownable{owner: owner},
		lord:      lord,
		minters:   make(map[common.Address]map[common.Address]bool),
		emergency: emergency,
	}
}

// IsMinter reports whether account may mint or burn tokenAddr. Fails while
// paused, freezing all supply changes chain-wide.
func (d *MinterDAO) IsMinter(account, tokenAddr common.Address) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.paused {
		return false, ErrPaused
	}
	if account == d.lord.Address() {
		return true, nil
	}
	return d.minters[tokenAddr][account], nil
}

// AddMinter registers account as an additional minter for tokenAddr.
// Owner only.
func (d *MinterDAO) AddMinter(caller, account, tokenAddr common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if caller != d.owner {
		return ErrNotOwner
	}
	if account == d.lord.Address() || d.minters[tokenAddr][account] {
		return ErrAlreadyMinter
	}
	if d.minters[tokenAddr] == nil {
		d.minters[tokenAddr] = make(map[common.Address]bool)
	}
	d.minters[tokenAddr][account] = true
	return nil
}

// RemoveMinter deregisters account for tokenAddr. Owner only.
func (d *MinterDAO) RemoveMinter(caller, account, tokenAddr common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if caller != d.owner {
		return ErrNotOwner
	}
	if !d.minters[tokenAddr][account] {
		return ErrNotMinter
	}
	delete(d.minters[tokenAddr], account)
	return nil
}

// TransferOwnership proposes a new owner (two-phase).
func (d *MinterDAO) TransferOwnership(caller, newOwner common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (d *MinterDAO) AcceptOwnership(caller common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acceptOwnership(caller)
}

func (d *MinterDAO) checkPauser(caller common.Address) error {
	if caller == d.owner {
		return nil
	}
	if d.emergency != nil && d.emergency.IsEmergencyOperator(caller) {
		return nil
	}
	return ErrNoPermission
}

// Pause freezes minting; owner or emergency operator.
func (d *MinterDAO) Pause(caller common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPauser(caller); err != nil {
		return err
	}
	if d.paused {
		return ErrPaused
	}
	d.paused = true
	return nil
}

// Unpause resumes minting; owner or emergency operator.
func (d *MinterDAO) Unpause(caller common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPauser(caller); err != nil {
		return err
	}
	if !d.paused {
		return ErrNotPaused
	}
	d.paused = false
	return nil
}
