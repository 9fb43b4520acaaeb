// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"sync"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// ThresholdMode selects how many distinct validator signatures a withdrawal
// needs. Historical deployments required the full registered set; the policy
// is explicit here rather than inferred.
type ThresholdMode uint8

const (
	// RequireAll demands a signature from every registered validator.
	RequireAll ThresholdMode = iota
	// FixedCount demands a fixed number of distinct signatures.
	FixedCount
	// Fraction demands ceil(size * Numerator / Denominator) signatures.
	Fraction
)

// ThresholdPolicy configures the verifier's quorum rule. The zero value is
// RequireAll.
type ThresholdPolicy struct {
	Mode        ThresholdMode
	Count       int // FixedCount
	Numerator   int // Fraction
	Denominator int // Fraction
}

// required returns the quorum for a validator set of the given size.
func (p ThresholdPolicy) required(size int) int {
	switch p.Mode {
	case FixedCount:
		if p.Count < 1 {
			return 1
		}
		return p.Count
	case Fraction:
		if p.Numerator < 1 || p.Denominator < 1 {
			return size
		}
		n := (size*p.Numerator + p.Denominator - 1) / p.Denominator
		if n < 1 {
			return 1
		}
		return n
	default:
		return size
	}
}

// Verifier authenticates withdrawal digests against a registered validator
// set. Verification is pure: it mutates nothing and returns the recovered
// addresses in signature order for audit events.
//
// The verifier starts paused. Validator mutation is only permitted while
// paused, so quorum never changes under in-flight transfers; Verify is only
// permitted while unpaused.
type Verifier struct {
	ownable
	validators []common.Address
	index      map[common.Address]int
	policy     ThresholdPolicy
	paused     bool
	emergency  *EmergencyOperator
	events     *EventLog

	mu sync.RWMutex
}

// NewVerifier creates a paused verifier with an empty validator set.
// emergency may be nil; events may be nil.
func NewVerifier(owner common.Address, policy ThresholdPolicy, emergency *EmergencyOperator, events *EventLog) *Verifier {
	return &Verifier{
		ownable:   ownable{owner: owner},
		index:     make(map[common.Address]int),
		policy:    policy,
		paused:    true,
		emergency: emergency,
		events:    events,
	}
}

// Owner returns the verifier owner.
func (v *Verifier) Owner() common.Address {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.owner
}

// TransferOwnership proposes a new owner.
func (v *Verifier) TransferOwnership(caller, newOwner common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (v *Verifier) AcceptOwnership(caller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.acceptOwnership(caller)
}

// Paused reports the pause state.
func (v *Verifier) Paused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused
}

// Pause halts verification and opens the configuration window. Owner or
// emergency operator.
func (v *Verifier) Pause(caller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkPauser(caller); err != nil {
		return err
	}
	if v.paused {
		return ErrPaused
	}
	v.paused = true
	return nil
}

// Unpause resumes verification. Owner or emergency operator.
func (v *Verifier) Unpause(caller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkPauser(caller); err != nil {
		return err
	}
	if !v.paused {
		return ErrNotPaused
	}
	v.paused = false
	return nil
}

func (v *Verifier) checkPauser(caller common.Address) error {
	if caller == v.owner {
		return nil
	}
	if v.emergency != nil && v.emergency.IsEmergencyOperator(caller) {
		return nil
	}
	return ErrNoPermission
}

// AddAll registers validators. Owner only, paused only. Addresses already
// registered are skipped, keeping the active set duplicate-free.
func (v *Verifier) AddAll(caller common.Address, validators []common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrNotOwner
	}
	if !v.paused {
		return ErrNotPaused
	}
	for _, val := range validators {
		if val == (common.Address{}) {
			return ErrInvalidValidator
		}
		if _, ok := v.index[val]; ok {
			continue
		}
		v.index[val] = len(v.validators)
		v.validators = append(v.validators, val)
		if v.events != nil {
			v.events.Append(ValidatorAddedEvent{Validator: val})
		}
	}
	return nil
}

// RemoveAll deregisters validators. Owner only, paused only. Unknown
// addresses are skipped.
func (v *Verifier) RemoveAll(caller common.Address, validators []common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrNotOwner
	}
	if !v.paused {
		return ErrNotPaused
	}
	for _, val := range validators {
		i, ok := v.index[val]
		if !ok {
			continue
		}
		last := len(v.validators) - 1
		if i != last {
			moved := v.validators[last]
			v.validators[i] = moved
			v.index[moved] = i
		}
		v.validators = v.validators[:last]
		delete(v.index, val)
		if v.events != nil {
			v.events.Append(ValidatorRemovedEvent{Validator: val})
		}
	}
	return nil
}

// Count returns the number of registered validators.
func (v *Verifier) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.validators)
}

// Get returns a page of validators plus the total count, so callers can
// enumerate without an unbounded read.
func (v *Verifier) Get(offset, limit int) ([]common.Address, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	total := len(v.validators)
	if offset < 0 || offset >= total || limit <= 0 {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]common.Address, end-offset)
	copy(page, v.validators[offset:end])
	return page, total
}

// IsValidator reports membership.
func (v *Verifier) IsValidator(addr common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.index[addr]
	return ok
}

// Verify recovers signer addresses from the packed signature blob over
// digest and checks them against the validator set and threshold policy.
// Returns the recovered addresses in blob order.
func (v *Verifier) Verify(digest common.Hash, signatures []byte) ([]common.Address, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.paused {
		return nil, ErrPaused
	}
	if len(signatures) == 0 || len(signatures)%SignatureLength != 0 {
		return nil, ErrInvalidSignatureLength
	}

	count := len(signatures) / SignatureLength
	recovered := make([]common.Address, 0, count)
	seen := make(map[common.Address]bool, count)
	for i := 0; i < count; i++ {
		addr, err := recoverSigner(digest, signatures[i*SignatureLength:(i+1)*SignatureLength])
		if err != nil {
			return nil, ErrInvalidValidator
		}
		if _, ok := v.index[addr]; !ok {
			return nil, ErrInvalidValidator
		}
		if seen[addr] {
			return nil, ErrDuplicateValidator
		}
		seen[addr] = true
		recovered = append(recovered, addr)
	}

	if len(recovered) < v.policy.required(len(v.validators)) {
		return nil, ErrInsufficientValidators
	}
	return recovered, nil
}

// recoverSigner recovers the address behind one r||s||v chunk. Both legacy
// (27/28) and raw (0/1) recovery ids are accepted.
func recoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address(crypto.PubkeyToAddress(*pub)), nil
}
