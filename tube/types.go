// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tube implements the trust and settlement core of a cross-chain
// asset bridge: threshold signature verification over a registered validator
// set, a replay-protection ledger of settled transfer keys, an asset
// registry, the mint/burn authority ("Lord"), the bridge endpoint state
// machine ("Tube") with fee handling and auxiliary-call execution, a
// decimal-rescaling token pair, and a thin deposit router.
package tube

import (
	"errors"

	"github.com/luxfi/geth/common"
)

// Bridge errors. Messages match the on-chain revert strings so relayer
// tooling can pattern-match either side.
var (
	ErrNotOwner               = errors.New("caller is not the owner")
	ErrNotPendingOwner        = errors.New("caller is not the pending owner")
	ErrInvalidOwner           = errors.New("invalid owner")
	ErrNoPermission           = errors.New("no permission")
	ErrPaused                 = errors.New("paused")
	ErrNotPaused              = errors.New("not paused")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountIsZero           = errors.New("amount is 0")
	ErrInvalidRecipient       = errors.New("invalid recipient")
	ErrInvalidTubeIDOrToken   = errors.New("invalid tubeID or token")
	ErrInvalidDestinationTube = errors.New("invalid destination tube")
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidValidator       = errors.New("invalid validator")
	ErrDuplicateValidator     = errors.New("duplicate validator")
	ErrInsufficientValidators = errors.New("insufficient validators")
	ErrDuplicateRecord        = errors.New("duplicate record")
	ErrInvalidOperator        = errors.New("invalid operator")
	ErrAlreadyOperator        = errors.New("already an operator")
	ErrNotOperator            = errors.New("not an operator")
	ErrAlreadyMinter          = errors.New("already a minter")
	ErrNotMinter              = errors.New("not a minter")
	ErrInvalidTubeID          = errors.New("invalid tube id")
	ErrInvalidAssetAddress    = errors.New("invalid asset address")
	ErrDuplicateAsset         = errors.New("duplicate asset")
	ErrUnknownAsset           = errors.New("unknown asset")
	ErrNoRounding             = errors.New("no rounding")
	ErrInsufficientCredit     = errors.New("insufficient credit")
	ErrInvalidArrayLength     = errors.New("invalid array length")
	ErrInvalidParameters      = errors.New("invalid parameters")
	ErrRelayNotActive         = errors.New("relay not active")
	ErrInsufficientRelayFee   = errors.New("insufficient relay fee")
)

// SignatureLength is the wire width of one recoverable signature: r (32) ||
// s (32) || recovery id (1).
const SignatureLength = 65

// ownable is a two-phase owner record: TransferOwnership proposes, the
// proposed owner accepts. Single-step reassignment is deliberately not
// offered; a typo in the new owner must not brick the authority.
//
// Callers hold the embedding struct's lock.
type ownable struct {
	owner        common.Address
	pendingOwner common.Address
}

func (o *ownable) transferOwnership(caller, newOwner common.Address) error {
	if caller != o.owner {
		return ErrNotOwner
	}
	if newOwner == (common.Address{}) {
		return ErrInvalidOwner
	}
	o.pendingOwner = newOwner
	return nil
}

func (o *ownable) acceptOwnership(caller common.Address) error {
	if o.pendingOwner == (common.Address{}) || caller != o.pendingOwner {
		return ErrNotPendingOwner
	}
	o.owner = o.pendingOwner
	o.pendingOwner = common.Address{}
	return nil
}
