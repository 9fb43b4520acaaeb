// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

var recordedValue = []byte{1}

// Ledger is the replay-protection record of settled transfer keys. Exactly
// one bridge endpoint holds write access at a time (owner plus an operator
// allow-list); once a key is recorded it can never be recorded again, which
// is the bridge's double-spend barrier.
type Ledger struct {
	ownable
	db        database.Database
	operators map[common.Address]bool

	mu sync.Mutex
}

// NewLedger creates a ledger over the given database. The database carries
// the settled-key set across endpoint upgrades.
func NewLedger(owner common.Address, db database.Database) *Ledger {
	return &Ledger{
		ownable:   ownable{owner: owner},
		db:        db,
		operators: make(map[common.Address]bool),
	}
}

// Owner returns the current owner.
func (l *Ledger) Owner() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// TransferOwnership proposes a new owner (two-phase).
func (l *Ledger) TransferOwnership(caller, newOwner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (l *Ledger) AcceptOwnership(caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acceptOwnership(caller)
}

// AddOperator grants record rights. Owner only.
func (l *Ledger) AddOperator(caller, operator common.Address) error {
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

// RemoveOperator revokes record rights. Owner only.
func (l *Ledger) RemoveOperator(caller, operator common.Address) error {
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

// Record marks key as settled. Fails with ErrDuplicateRecord if the key was
// ever recorded. Only the owner or an operator may record; the check and the
// write are atomic with respect to other Ledger calls.
func (l *Ledger) Record(caller common.Address, key common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner && !l.operators[caller] {
		return ErrInvalidOperator
	}
	seen, err := l.db.Has(key.Bytes())
	if err != nil {
		return err
	}
	if seen {
		return ErrDuplicateRecord
	}
	return l.db.Put(key.Bytes(), recordedValue)
}

// revoke erases a recorded key, unwinding a settlement whose delivery
// failed after the record. Not part of the public surface: only the
// endpoint that just recorded the key may put it back.
func (l *Ledger) revoke(key common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Delete(key.Bytes())
}

// Get reports whether key has been settled. Free-standing read for tests
// and audits.
func (l *Ledger) Get(key common.Hash) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Has(key.Bytes())
}
