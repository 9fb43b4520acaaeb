// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// AssetType classifies how a tube moves value for an asset.
type AssetType uint8

const (
	// AssetCrosschain assets are representations: deposits burn through the
	// Lord, withdrawals mint.
	AssetCrosschain AssetType = iota
	// AssetCustodial assets are originals: deposits move tokens into tube
	// custody, withdrawals release them.
	AssetCustodial
)

type asset struct {
	id     uint64
	typ    AssetType
	active bool
	// tubeID -> token address / per-tube activation
	tokens      map[uint64]common.Address
	tokenActive map[uint64]bool
}

// AssetRegistry is the shared map of bridgeable assets: which token address
// represents an asset on which tube, and whether each level (asset, tube,
// asset-on-tube) is currently enabled. Mutation goes through an operator
// allow-list managed by the owner.
type AssetRegistry struct {
	ownable
	operators map[common.Address]bool
	assets    []*asset
	// tubeID -> token -> assetID
	index        map[uint64]map[common.Address]uint64
	tubeDisabled map[uint64]bool
	events       *EventLog

	mu sync.RWMutex
}

// NewAssetRegistry creates an empty registry. Tubes and new assets start
// active; operators must be granted before any registration.
func NewAssetRegistry(owner common.Address, events *EventLog) *AssetRegistry {
	if events == nil {
		events = NewEventLog()
	}
	return &AssetRegistry{
		ownable:      ownable{owner: owner},
		operators:    make(map[common.Address]bool),
		index:        make(map[uint64]map[common.Address]uint64),
		tubeDisabled: make(map[uint64]bool),
		events:       events,
	}
}

// Owner returns the current owner.
func (r *AssetRegistry) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// TransferOwnership proposes a new owner (two-phase).
func (r *AssetRegistry) TransferOwnership(caller, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (r *AssetRegistry) AcceptOwnership(caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptOwnership(caller)
}

// Grant adds an operator. Owner only.
func (r *AssetRegistry) Grant(caller, operator common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	if r.operators[operator] {
		return ErrAlreadyOperator
	}
	r.operators[operator] = true
	return nil
}

// Revoke removes an operator. Owner only.
func (r *AssetRegistry) Revoke(caller, operator common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	if !r.operators[operator] {
		return ErrNotOperator
	}
	delete(r.operators, operator)
	return nil
}

// IsOperator reports whether account may mutate the registry.
func (r *AssetRegistry) IsOperator(account common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return account == r.owner || r.operators[account]
}

func (r *AssetRegistry) checkOperator(caller common.Address) error {
	if caller != r.owner && !r.operators[caller] {
		return ErrNoPermission
	}
	return nil
}

// NewAsset registers a new asset with its token address on its origin tube.
// Asset IDs start at 1 and never recycle.
func (r *AssetRegistry) NewAsset(caller common.Address, tubeID uint64, token common.Address, typ AssetType) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return 0, err
	}
	if tubeID == 0 {
		return 0, ErrInvalidTubeID
	}
	if token == (common.Address{}) {
		return 0, ErrInvalidAssetAddress
	}
	if r.index[tubeID][token] != 0 {
		return 0, ErrDuplicateAsset
	}
	a := &asset{
		id:          uint64(len(r.assets)) + 1,
		typ:         typ,
		active:      true,
		tokens:      map[uint64]common.Address{tubeID: token},
		tokenActive: map[uint64]bool{tubeID: true},
	}
	r.assets = append(r.assets, a)
	if r.index[tubeID] == nil {
		r.index[tubeID] = make(map[common.Address]uint64)
	}
	r.index[tubeID][token] = a.id
	r.events.Append(NewAssetEvent{AssetID: a.id, TubeID: tubeID, Token: token})
	return a.id, nil
}

// SetAssetOnTube maps an existing asset to its token address on another
// tube. Mapping starts active.
func (r *AssetRegistry) SetAssetOnTube(caller common.Address, assetID, tubeID uint64, token common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return err
	}
	if tubeID == 0 {
		return ErrInvalidTubeID
	}
	if token == (common.Address{}) {
		return ErrInvalidAssetAddress
	}
	a, err := r.asset(assetID)
	if err != nil {
		return err
	}
	if _, ok := a.tokens[tubeID]; ok {
		return ErrDuplicateAsset
	}
	if r.index[tubeID][token] != 0 {
		return ErrDuplicateAsset
	}
	a.tokens[tubeID] = token
	a.tokenActive[tubeID] = true
	if r.index[tubeID] == nil {
		r.index[tubeID] = make(map[common.Address]uint64)
	}
	r.index[tubeID][token] = a.id
	r.events.Append(AssetSetOnTubeEvent{AssetID: a.id, TubeID: tubeID, Token: token})
	return nil
}

// RemoveAssetOnTube unmaps an asset from a tube.
func (r *AssetRegistry) RemoveAssetOnTube(caller common.Address, assetID, tubeID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return err
	}
	a, err := r.asset(assetID)
	if err != nil {
		return err
	}
	token, ok := a.tokens[tubeID]
	if !ok {
		return ErrUnknownAsset
	}
	delete(a.tokens, tubeID)
	delete(a.tokenActive, tubeID)
	delete(r.index[tubeID], token)
	r.events.Append(AssetRemovedOnTubeEvent{AssetID: a.id, TubeID: tubeID})
	return nil
}

// ActivateAsset enables an asset on every tube it is mapped to.
func (r *AssetRegistry) ActivateAsset(caller common.Address, assetID uint64) error {
	return r.setAssetActive(caller, assetID, true)
}

// DeactivateAsset disables an asset everywhere.
func (r *AssetRegistry) DeactivateAsset(caller common.Address, assetID uint64) error {
	return r.setAssetActive(caller, assetID, false)
}

func (r *AssetRegistry) setAssetActive(caller common.Address, assetID uint64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return err
	}
	a, err := r.asset(assetID)
	if err != nil {
		return err
	}
	if a.active != active {
		a.active = active
		r.events.Append(AssetActivatedEvent{AssetID: a.id, Active: active})
	}
	return nil
}

// ActivateTube re-enables every asset mapping on a tube.
func (r *AssetRegistry) ActivateTube(caller common.Address, tubeID uint64) error {
	return r.setTubeActive(caller, tubeID, true)
}

// DeactivateTube disables a tube wholesale, e.g. when its chain halts.
func (r *AssetRegistry) DeactivateTube(caller common.Address, tubeID uint64) error {
	return r.setTubeActive(caller, tubeID, false)
}

func (r *AssetRegistry) setTubeActive(caller common.Address, tubeID uint64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return err
	}
	if tubeID == 0 {
		return ErrInvalidTubeID
	}
	if active {
		delete(r.tubeDisabled, tubeID)
	} else {
		r.tubeDisabled[tubeID] = true
	}
	return nil
}

// ActivateAssetOnTube enables one asset's mapping on one tube.
func (r *AssetRegistry) ActivateAssetOnTube(caller common.Address, assetID, tubeID uint64) error {
	return r.setAssetOnTubeActive(caller, assetID, tubeID, true)
}

// DeactivateAssetOnTube disables one asset's mapping on one tube.
func (r *AssetRegistry) DeactivateAssetOnTube(caller common.Address, assetID, tubeID uint64) error {
	return r.setAssetOnTubeActive(caller, assetID, tubeID, false)
}

func (r *AssetRegistry) setAssetOnTubeActive(caller common.Address, assetID, tubeID uint64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOperator(caller); err != nil {
		return err
	}
	a, err := r.asset(assetID)
	if err != nil {
		return err
	}
	if _, ok := a.tokens[tubeID]; !ok {
		return ErrUnknownAsset
	}
	a.tokenActive[tubeID] = active
	return nil
}

func (r *AssetRegistry) asset(assetID uint64) (*asset, error) {
	if assetID == 0 || assetID > uint64(len(r.assets)) {
		return nil, ErrUnknownAsset
	}
	return r.assets[assetID-1], nil
}

// NumOfAssets returns the number of registered assets.
func (r *AssetRegistry) NumOfAssets() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.assets))
}

// AssetID resolves (tubeID, token) to an asset ID, 0 if unregistered.
func (r *AssetRegistry) AssetID(tubeID uint64, token common.Address) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[tubeID][token]
}

// Type returns an asset's classification.
func (r *AssetRegistry) Type(assetID uint64) (AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, err := r.asset(assetID)
	if err != nil {
		return 0, err
	}
	return a.typ, nil
}

// IsActive reports whether the asset is globally enabled.
func (r *AssetRegistry) IsActive(assetID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, err := r.asset(assetID)
	return err == nil && a.active
}

// IsActiveOnTube reports whether the asset's mapping on tubeID is usable:
// the asset, the mapping, and the tube must all be enabled.
func (r *AssetRegistry) IsActiveOnTube(assetID, tubeID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, err := r.asset(assetID)
	if err != nil {
		return false
	}
	return a.active && a.tokenActive[tubeID] && !r.tubeDisabled[tubeID]
}

// TokenOnTube resolves the asset's token address on tubeID. The zero address
// means the mapping exists but is currently disabled at some level.
func (r *AssetRegistry) TokenOnTube(assetID, tubeID uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, err := r.asset(assetID)
	if err != nil {
		return common.Address{}, err
	}
	token, ok := a.tokens[tubeID]
	if !ok {
		return common.Address{}, ErrUnknownAsset
	}
	if !a.active || !a.tokenActive[tubeID] || r.tubeDisabled[tubeID] {
		return common.Address{}, nil
	}
	return token, nil
}
