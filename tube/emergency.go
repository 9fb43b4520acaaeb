// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// EmergencyOperator is a shared allow-list of accounts permitted to pause
// pausable components. Kept separate from each component's owner so an
// incident responder can halt the bridge without holding upgrade keys.
type EmergencyOperator struct {
	ownable
	operators map[common.Address]bool

	mu sync.RWMutex
}

// NewEmergencyOperator creates the allow-list with the given owner.
func NewEmergencyOperator(owner common.Address) *EmergencyOperator {
	return &EmergencyOperator{
		ownable:   ownable{owner: owner},
		operators: make(map[common.Address]bool),
	}
}

// AddEmergencyOperator grants pause rights. Owner only.
func (e *EmergencyOperator) AddEmergencyOperator(caller, operator common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	if e.operators[operator] {
		return ErrAlreadyOperator
	}
	e.operators[operator] = true
	return nil
}

// RemoveEmergencyOperator revokes pause rights. Owner only.
func (e *EmergencyOperator) RemoveEmergencyOperator(caller, operator common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	if !e.operators[operator] {
		return ErrNotOperator
	}
	delete(e.operators, operator)
	return nil
}

// IsEmergencyOperator reports whether account may pause.
func (e *EmergencyOperator) IsEmergencyOperator(account common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.operators[account]
}
